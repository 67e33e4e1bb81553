package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type principal struct {
	authenticated bool
	admin         bool
}

func (p principal) IsAuthenticated() bool { return p.authenticated }
func (p principal) IsAdmin() bool         { return p.admin }

var (
	anonymous = principal{}
	operator  = principal{authenticated: true}
	admin     = principal{authenticated: true, admin: true}
	// A restored token whose profile is not loaded yet.
	tokenOnly = principal{authenticated: true}
)

func TestGuard_Decide(t *testing.T) {
	g := NewGuard(Default())

	tests := []struct {
		name    string
		path    string
		who     Principal
		outcome Outcome
		target  string
		reason  string
	}{
		{"public anonymous", "/login", anonymous, Allow, "", ReasonPublic},
		{"public authenticated", "/login", admin, Allow, "", ReasonPublic},
		{"init is public", "/init", anonymous, Allow, "", ReasonPublic},
		{"authenticated without session", "/clients", anonymous, Redirect, LoginPath, ReasonNoSession},
		{"authenticated with session", "/clients", operator, Allow, "", ReasonAuthenticated},
		{"admin-only without session", "/settings", anonymous, Redirect, LoginPath, ReasonNoSession},
		{"admin-only as operator", "/settings", operator, Redirect, DashboardPath, ReasonNotAdmin},
		{"admin-only before profile", "/users", tokenOnly, Redirect, DashboardPath, ReasonNotAdmin},
		{"admin-only as admin", "/settings", admin, Allow, "", ReasonAdmin},
		{"root alias", "/", admin, Redirect, DashboardPath, ReasonAlias},
		{"unmatched", "/nope", admin, Redirect, DashboardPath, ReasonUnmatched},
		{"unmatched anonymous", "/nope", anonymous, Redirect, DashboardPath, ReasonUnmatched},
		{"trailing slash and query", "/clients/?page=2", operator, Allow, "", ReasonAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Decide(tt.path, tt.who)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.target, d.Target)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestGuard_PublicAlwaysAllowed(t *testing.T) {
	g := NewGuard(Default())
	for _, r := range Default().Routes() {
		if r.Access != Public {
			continue
		}
		for _, who := range []Principal{anonymous, operator, admin} {
			assert.True(t, g.Decide(r.Path, who).Allowed(), "%s for %+v", r.Path, who)
		}
	}
}

func TestNewTable_Validation(t *testing.T) {
	_, err := NewTable([]Route{{Path: "/a"}, {Path: "/a/"}}, "/a")
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewTable([]Route{{Path: "/a", Redirect: "/b"}}, "/a")
	assert.ErrorContains(t, err, "undeclared")

	_, err = NewTable([]Route{{Path: "/a"}}, "/home")
	assert.ErrorContains(t, err, "fallback")

	tbl, err := NewTable([]Route{{Path: "a"}}, "a")
	require.NoError(t, err)
	r, ok := tbl.Lookup("/A")
	require.True(t, ok)
	assert.Equal(t, "/a", r.Path)
}

func TestTable_Menu(t *testing.T) {
	names := func(rs []Route) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.Name)
		}
		return out
	}

	tbl := Default()
	assert.Empty(t, tbl.Menu(anonymous))
	assert.NotContains(t, names(tbl.Menu(operator)), "settings")
	assert.Contains(t, names(tbl.Menu(operator)), "clients")
	assert.Contains(t, names(tbl.Menu(admin)), "settings")
	assert.NotContains(t, names(tbl.Menu(admin)), "login")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "/", Normalize(""))
	assert.Equal(t, "/", Normalize("/"))
	assert.Equal(t, "/clients", Normalize("clients"))
	assert.Equal(t, "/clients", Normalize("/clients/#top"))
	assert.Equal(t, "/stats/daily", Normalize("/stats/daily?days=7"))
}
