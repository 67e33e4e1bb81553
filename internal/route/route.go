// Package route declares the console's navigable views and the guard that
// decides, before every navigation, whether the current session may enter
// them.
package route

import (
	"fmt"
	"net/url"
	"strings"
)

// Well-known paths.
const (
	LoginPath     = "/login"
	InitPath      = "/init"
	DashboardPath = "/dashboard"
)

// Access is a route's access requirement. The zero value requires a session.
type Access int

const (
	Authenticated Access = iota
	Public
	AdminOnly
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case AdminOnly:
		return "admin-only"
	}
	return "authenticated"
}

// Route describes one navigable path. Routes are static: built once, never
// mutated.
type Route struct {
	Path   string
	Name   string
	Title  string
	Access Access
	// Redirect makes the route an alias that always forwards to another path.
	Redirect string
	// Hidden routes are reachable but not listed in menus.
	Hidden bool
}

// Table is an immutable set of routes plus the catch-all target used for
// unmatched paths.
type Table struct {
	routes   []Route
	byPath   map[string]Route
	fallback string
}

// NewTable validates routes and builds a table. fallback is where unmatched
// paths are sent and must itself be a declared route.
func NewTable(routes []Route, fallback string) (*Table, error) {
	t := &Table{
		byPath:   make(map[string]Route, len(routes)),
		fallback: Normalize(fallback),
	}

	for _, r := range routes {
		r.Path = Normalize(r.Path)
		if _, dup := t.byPath[r.Path]; dup {
			return nil, fmt.Errorf("duplicate route %q", r.Path)
		}
		if r.Redirect != "" {
			r.Redirect = Normalize(r.Redirect)
		}
		t.byPath[r.Path] = r
		t.routes = append(t.routes, r)
	}

	for _, r := range t.routes {
		if r.Redirect != "" {
			if _, ok := t.byPath[r.Redirect]; !ok {
				return nil, fmt.Errorf("route %q redirects to undeclared %q", r.Path, r.Redirect)
			}
		}
	}
	if _, ok := t.byPath[t.fallback]; !ok {
		return nil, fmt.Errorf("fallback %q is not a declared route", t.fallback)
	}
	return t, nil
}

// MustTable is NewTable for static tables known to be valid.
func MustTable(routes []Route, fallback string) *Table {
	t, err := NewTable(routes, fallback)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the route declared for path.
func (t *Table) Lookup(path string) (Route, bool) {
	r, ok := t.byPath[Normalize(path)]
	return r, ok
}

// Fallback is the catch-all redirect target.
func (t *Table) Fallback() string {
	return t.fallback
}

// Routes returns the declared routes in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Menu returns the visible, non-alias routes a principal may enter.
func (t *Table) Menu(p Principal) []Route {
	var out []Route
	for _, r := range t.routes {
		if r.Hidden || r.Redirect != "" {
			continue
		}
		if r.Access == Public && p.IsAuthenticated() {
			continue
		}
		if r.Access != Public && !p.IsAuthenticated() {
			continue
		}
		if r.Access == AdminOnly && !p.IsAdmin() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Normalize strips query, fragment and trailing slashes and ensures a
// leading slash: "clients/?page=2" becomes "/clients".
func Normalize(path string) string {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	path = "/" + strings.Trim(path, "/")
	return strings.ToLower(path)
}

// Default is the console's route table: the public entry points, the
// authenticated section and its admin-only children, with unmatched paths
// sent to the dashboard.
func Default() *Table {
	return MustTable([]Route{
		{Path: LoginPath, Name: "login", Title: "Login", Access: Public, Hidden: true},
		{Path: InitPath, Name: "init", Title: "Setup", Access: Public, Hidden: true},
		{Path: "/", Name: "root", Redirect: DashboardPath, Hidden: true},
		{Path: DashboardPath, Name: "dashboard", Title: "Dashboard"},
		{Path: "/inbounds", Name: "inbounds", Title: "Inbounds"},
		{Path: "/outbounds", Name: "outbounds", Title: "Outbounds"},
		{Path: "/clients", Name: "clients", Title: "Clients"},
		{Path: "/certificates", Name: "certificates", Title: "Certificates"},
		{Path: "/traffic", Name: "traffic", Title: "Traffic"},
		{Path: "/audit", Name: "audit", Title: "Audit Log"},
		{Path: "/users", Name: "users", Title: "Users", Access: AdminOnly},
		{Path: "/settings", Name: "settings", Title: "Settings", Access: AdminOnly},
	}, DashboardPath)
}
