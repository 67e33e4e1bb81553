package route

// Principal is the view of the session the guard needs. session.Snapshot
// satisfies it.
type Principal interface {
	IsAuthenticated() bool
	IsAdmin() bool
}

// Outcome of a guard decision.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
)

func (o Outcome) String() string {
	if o == Redirect {
		return "redirect"
	}
	return "allow"
}

// Reasons recorded on decisions.
const (
	ReasonPublic        = "public"
	ReasonAuthenticated = "authenticated"
	ReasonAdmin         = "admin"
	ReasonNoSession     = "no_session"
	ReasonNotAdmin      = "not_admin"
	ReasonAlias         = "alias"
	ReasonUnmatched     = "unmatched"
)

// Decision is the guard's verdict for one navigation.
type Decision struct {
	Outcome Outcome
	// Path is the normalized requested path.
	Path string
	// Route is the matched route; zero for unmatched paths.
	Route Route
	// Target is where to go instead when Outcome is Redirect.
	Target string
	Reason string
}

// Allowed reports whether the navigation may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Guard evaluates navigations against a route table.
type Guard struct {
	table *Table
}

// NewGuard returns a guard over table.
func NewGuard(table *Table) *Guard {
	return &Guard{table: table}
}

// Table returns the guard's route table.
func (g *Guard) Table() *Table {
	return g.table
}

// Decide returns the verdict for navigating to path with principal p. It is
// pure: no I/O and no mutation of p or the table.
func (g *Guard) Decide(path string, p Principal) Decision {
	path = Normalize(path)
	r, ok := g.table.Lookup(path)
	if !ok {
		return Decision{Outcome: Redirect, Path: path, Target: g.table.Fallback(), Reason: ReasonUnmatched}
	}

	d := Decision{Path: path, Route: r}
	switch {
	case r.Redirect != "":
		d.Outcome, d.Target, d.Reason = Redirect, r.Redirect, ReasonAlias
	case r.Access == Public:
		d.Reason = ReasonPublic
	case !p.IsAuthenticated():
		d.Outcome, d.Target, d.Reason = Redirect, LoginPath, ReasonNoSession
	case r.Access == AdminOnly && !p.IsAdmin():
		d.Outcome, d.Target, d.Reason = Redirect, DashboardPath, ReasonNotAdmin
	case r.Access == AdminOnly:
		d.Reason = ReasonAdmin
	default:
		d.Reason = ReasonAuthenticated
	}
	return d
}
