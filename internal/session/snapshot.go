package session

import "time"

// State is the coarse session state the route guard reasons about.
type State int

const (
	StateAnonymous State = iota
	StateUnprivileged
	StatePrivileged
)

func (s State) String() string {
	switch s {
	case StateUnprivileged:
		return "authenticated"
	case StatePrivileged:
		return "privileged"
	}
	return "anonymous"
}

// Snapshot is a point-in-time copy of the session. The authorization flags
// are derived on every call and never stored.
type Snapshot struct {
	Token      string
	Identity   *Identity
	ExpiresAt  time.Time
	Generation uint64
}

// IsAuthenticated reports whether a token is held.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != ""
}

// IsAdmin reports whether the loaded identity is an admin.
func (s Snapshot) IsAdmin() bool {
	return s.Identity != nil && s.Identity.Role == RoleAdmin
}

// IsOperatorOrAbove reports whether the loaded identity is operator or admin.
func (s Snapshot) IsOperatorOrAbove() bool {
	return s.Identity != nil && s.Identity.Role.AtLeast(RoleOperator)
}

// Role returns the identity's role, or RoleUnknown when no profile is loaded.
func (s Snapshot) Role() Role {
	if s.Identity == nil {
		return RoleUnknown
	}
	return s.Identity.Role
}

// State classifies the snapshot.
func (s Snapshot) State() State {
	switch {
	case !s.IsAuthenticated():
		return StateAnonymous
	case s.IsAdmin():
		return StatePrivileged
	}
	return StateUnprivileged
}

// Expired reports whether the token's known expiry has passed. A token
// without a known expiry never reports expired.
func (s Snapshot) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Valid reports whether the identity-implies-token invariant holds.
func (s Snapshot) Valid() bool {
	return s.Identity == nil || s.Token != ""
}
