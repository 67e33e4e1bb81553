package session

import (
	"fmt"
	"strings"
)

// Role is a panel account's permission level. The set is closed: any string
// the panel sends that is not listed here parses to RoleUnknown, which ranks
// below every real role and grants nothing.
type Role int

const (
	RoleUnknown  Role = iota
	RoleViewer        // Read-only dashboard access
	RoleOperator      // Manage clients, inbounds and certificates
	RoleAdmin         // Full access, user management and system settings
)

var roleNames = map[Role]string{
	RoleViewer:   "viewer",
	RoleOperator: "operator",
	RoleAdmin:    "admin",
}

// ParseRole maps a panel role string to a Role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "operator":
		return RoleOperator
	case "viewer":
		return RoleViewer
	}
	return RoleUnknown
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the role as the panel's role string.
func (r Role) MarshalText() ([]byte, error) {
	if r == RoleUnknown {
		return []byte(""), nil
	}
	return []byte(r.String()), nil
}

// UnmarshalText never fails: unrecognized strings become RoleUnknown.
func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}

// AtLeast reports whether r ranks at or above min. RoleUnknown is never at
// least anything, including itself.
func (r Role) AtLeast(min Role) bool {
	if r == RoleUnknown || min == RoleUnknown {
		return false
	}
	return r >= min
}

// Capability is a named action the console gates on.
type Capability string

// Capabilities.
const (
	CapView            Capability = "view"
	CapManageResources Capability = "manage"
	CapAdminister      Capability = "admin"
)

// roleCapabilities is the single source of truth for what each role may do.
var roleCapabilities = map[Role][]Capability{
	RoleViewer:   {CapView},
	RoleOperator: {CapView, CapManageResources},
	RoleAdmin:    {CapView, CapManageResources, CapAdminister},
}

// Can reports whether the role grants c.
func (r Role) Can(c Capability) bool {
	for _, have := range roleCapabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}

// Capabilities returns a copy of the role's capability set.
func (r Role) Capabilities() []Capability {
	caps := roleCapabilities[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// Identity is the profile of the logged-in panel account.
type Identity struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
	Nickname string `json:"nickname,omitempty"`
	Status   int    `json:"status,omitempty"`
}

// Name returns the best human-readable label for the account.
func (i *Identity) Name() string {
	switch {
	case i == nil:
		return ""
	case i.Nickname != "":
		return i.Nickname
	case i.Username != "":
		return i.Username
	}
	return i.Email
}

func (i *Identity) String() string {
	if i == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s (%s)", i.Name(), i.Role)
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
