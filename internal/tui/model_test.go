package tui

import (
	"bytes"
	"net/http"
	"net/url"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y-ui/yuictl/internal/api"
	"github.com/y-ui/yuictl/internal/clock"
	"github.com/y-ui/yuictl/internal/events"
	"github.com/y-ui/yuictl/internal/logging"
	"github.com/y-ui/yuictl/internal/notification"
	"github.com/y-ui/yuictl/internal/route"
	"github.com/y-ui/yuictl/internal/session"
	tu "github.com/y-ui/yuictl/internal/testutil"
	"github.com/y-ui/yuictl/internal/transport"
)

type harness struct {
	panel *tu.Panel
	store *session.Store
	clock *clock.MockClock
	model Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		panel: tu.NewPanel(t),
		clock: clock.NewMockClock(time.Now().Truncate(time.Second)),
	}
	h.panel.AddUser("root", "secret1", "admin")
	h.panel.AddUser("ops", "secret1", "operator")

	var store *session.Store
	client := transport.New(transport.Config{Server: h.panel.URL(), Timeout: 5 * time.Second},
		transport.WithLogger(logging.Discard()),
		transport.WithTokenSource(transport.TokenFunc(func() string { return store.Token() })))

	store, err := session.New(session.Options{Transport: client, Logger: logging.Discard(), Clock: h.clock})
	require.NoError(t, err)
	h.store = store

	routes := route.Default()
	nav := route.NewNavigator(route.NewGuard(routes),
		func() route.Principal { return store.Snapshot() },
		route.WithLogger(logging.Discard()))

	h.model = NewModel(Deps{
		Session:   store,
		API:       api.New(client),
		Navigator: nav,
		Routes:    routes,
		Logger:    logging.Discard(),
		Clock:     h.clock,
	})
	t.Cleanup(func() {
		h.model.Close()
		store.Close()
	})
	return h
}

func (h *harness) login(t *testing.T, account string) {
	t.Helper()
	_, err := h.store.Login(tu.Context(t), account, "secret1")
	require.NoError(t, err)
}

// send feeds msg to the model and returns the command it produced.
func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

// run executes cmd and feeds its message back.
func (h *harness) run(t *testing.T, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)
	return h.send(cmd())
}

func (h *harness) goTo(t *testing.T, path string) {
	t.Helper()
	h.run(t, h.model.navigate(path))
}

func (h *harness) toastMessages() []string {
	var out []string
	for _, t := range h.model.toasts {
		out = append(out, t.Message)
	}
	return out
}

func (h *harness) nextEvent(t *testing.T, want events.EventType) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-h.model.events:
			if e.Type == want {
				return e
			}
		case <-deadline:
			t.Fatalf("no %s event", want)
		}
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func menuPaths(m Model) []string {
	var out []string
	for _, r := range m.menu() {
		out = append(out, r.Path)
	}
	return out
}

func TestModel_AnonymousLandsOnLogin(t *testing.T) {
	h := newHarness(t)

	h.goTo(t, "/clients")
	assert.Equal(t, route.LoginPath, h.model.Path())
	require.NotNil(t, h.model.login)
	assert.Empty(t, h.model.menu(), "no menu without a session")
	assert.Contains(t, h.model.View(), "Not logged in")
}

func TestModel_OperatorMenuHidesAdminRoutes(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ops")

	paths := menuPaths(h.model)
	assert.Contains(t, paths, "/clients")
	assert.NotContains(t, paths, "/users")
	assert.NotContains(t, paths, "/settings")

	h.goTo(t, "/settings")
	assert.Equal(t, route.DashboardPath, h.model.Path())
	assert.Contains(t, h.toastMessages(), "Access denied, Settings requires administrator rights")
}

func TestModel_AdminMenu(t *testing.T) {
	h := newHarness(t)
	h.login(t, "root")

	paths := menuPaths(h.model)
	assert.Contains(t, paths, "/users")
	assert.Contains(t, paths, "/settings")

	// Keys 1-9 select menu entries in order.
	idx := -1
	for i, p := range paths {
		if p == "/settings" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	require.Less(t, idx, 9)
	h.run(t, h.send(key(string(rune('1'+idx)))))
	assert.Equal(t, "/settings", h.model.Path())
}

func TestModel_LoadsTable(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ops")
	h.panel.Respond(http.MethodGet, "clients", map[string]any{
		"list": []map[string]any{
			{"id": 1, "uuid": "u-1", "email": "a@x.com", "enable": true},
			{"id": 2, "uuid": "u-2", "email": "b@x.com", "enable": false},
		},
		"total": 2, "page": 1, "page_size": 20,
	})

	cmd := h.run(t, h.model.navigate("/clients"))
	assert.Equal(t, "/clients", h.model.Path())
	h.run(t, cmd)

	rows := h.model.tables["/clients"].Rows()
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0], "a@x.com")
	assert.Contains(t, h.model.View(), "b@x.com")
}

func TestModel_StaleLoadIgnored(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ops")
	h.goTo(t, route.DashboardPath)

	h.send(loadedMsg{path: "/clients", data: tableData{rows: [][]string{{"x"}}}})
	assert.Empty(t, h.model.tables["/clients"].Rows())
}

func TestModel_TablePaging(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ops")
	h.panel.Respond(http.MethodGet, "clients", map[string]any{
		"list":  []map[string]any{{"id": 1, "uuid": "u-1", "email": "a@x.com", "enable": true}},
		"total": 45, "page": 1, "page_size": 20,
	})
	h.run(t, h.run(t, h.model.navigate("/clients")))

	h.run(t, h.send(key("n")))
	req, ok := h.panel.LastRequest(http.MethodGet, "clients")
	require.True(t, ok)
	q, err := url.ParseQuery(req.Query)
	require.NoError(t, err)
	assert.Equal(t, "2", q.Get("page"))

	assert.Nil(t, h.send(key("p")), "fixture reported page 1, nothing before it")
}

func TestModel_LoadErrorKeepsRows(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ops")
	h.panel.Respond(http.MethodGet, "inbounds", map[string]any{
		"list":  []map[string]any{{"id": 1, "tag": "in-1", "protocol": "vless", "port": 443, "enable": true}},
		"total": 1, "page": 1, "page_size": 20,
	})
	h.run(t, h.run(t, h.model.navigate("/inbounds")))
	require.Len(t, h.model.tables["/inbounds"].Rows(), 1)

	h.panel.Fail(http.MethodGet, "inbounds", http.StatusInternalServerError, 500, "database locked")
	h.run(t, h.send(key("r")))

	assert.Len(t, h.model.tables["/inbounds"].Rows(), 1)
	assert.Contains(t, h.model.View(), "database locked")
}

func TestModel_ForcedLogoutReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ops")
	h.goTo(t, route.DashboardPath)
	require.Equal(t, route.DashboardPath, h.model.Path())

	h.store.ForceLogout("token expired")
	e := h.nextEvent(t, events.EventForcedLogout)

	cmd := h.send(sessionMsg(e))
	require.NotNil(t, cmd)
	assert.Contains(t, h.toastMessages(), "Session expired, please log in again")

	h.run(t, h.model.revalidate())
	assert.Equal(t, route.LoginPath, h.model.Path())
	assert.Empty(t, h.model.menu())
}

func TestModel_LoginFlow(t *testing.T) {
	h := newHarness(t)
	h.goTo(t, route.LoginPath)

	h.send(h.model.submitLogin("ops", "wrong")())
	require.NotNil(t, h.model.login)
	require.Error(t, h.model.login.err)
	assert.Equal(t, route.LoginPath, h.model.Path())
	assert.False(t, h.store.Snapshot().IsAuthenticated())

	cmd := h.send(h.model.submitLogin("ops", "secret1")())
	assert.Contains(t, h.toastMessages(), "Logged in as ops (operator)")
	h.run(t, cmd)
	assert.Equal(t, route.DashboardPath, h.model.Path())
}

func TestModel_LoginAttemptsThrottled(t *testing.T) {
	h := newHarness(t)
	h.goTo(t, route.LoginPath)

	for i := 0; i < loginAttempts; i++ {
		h.send(h.model.attemptLogin("ops", "wrong")())
	}
	require.Equal(t, loginAttempts, h.panel.Hits(http.MethodPost, "auth/login"))

	h.clock.Advance(15 * time.Second)
	h.send(h.model.attemptLogin("ops", "secret1")())
	require.Error(t, h.model.login.err)
	assert.Contains(t, h.model.login.err.Error(), "Too many login attempts, try again in 45s")
	assert.Equal(t, loginAttempts, h.panel.Hits(http.MethodPost, "auth/login"), "throttled attempt stays local")
	assert.False(t, h.store.Snapshot().IsAuthenticated())

	h.clock.Advance(loginWindow)
	cmd := h.send(h.model.attemptLogin("ops", "secret1")())
	assert.Contains(t, h.toastMessages(), "Logged in as ops (operator)")
	h.run(t, cmd)
	assert.Equal(t, route.DashboardPath, h.model.Path())
}

func TestModel_UninitializedPanelGoesToSetup(t *testing.T) {
	h := newHarness(t)
	h.goTo(t, route.LoginPath)

	assert.Nil(t, h.send(initCheckMsg{initialized: true}))

	h.run(t, h.send(initCheckMsg{initialized: false}))
	assert.Equal(t, route.InitPath, h.model.Path())
	require.NotNil(t, h.model.setup)
	assert.Contains(t, h.model.View(), "Setup")
}

func TestModel_SetupResult(t *testing.T) {
	h := newHarness(t)
	h.goTo(t, route.InitPath)

	h.run(t, h.send(authMsg{op: "init", account: "root"}))
	assert.Equal(t, route.LoginPath, h.model.Path())
	assert.Contains(t, h.toastMessages(), "Panel initialized, log in as root")
}

func TestModel_Logout(t *testing.T) {
	h := newHarness(t)
	h.login(t, "root")
	h.goTo(t, "/clients")

	cmd := h.send(key("L"))
	h.run(t, h.run(t, cmd))

	assert.Equal(t, route.LoginPath, h.model.Path())
	assert.Contains(t, h.toastMessages(), "Logged out")
	assert.Equal(t, 1, h.panel.Hits(http.MethodPost, "auth/logout"))
}

func TestModel_HistoryKeys(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ops")
	h.goTo(t, route.DashboardPath)
	h.goTo(t, "/clients")

	assert.Contains(t, h.model.View(), "[[] back")
	assert.NotContains(t, h.model.View(), "[]] forward")

	h.run(t, h.send(key("[")))
	assert.Equal(t, route.DashboardPath, h.model.Path())
	assert.Contains(t, h.model.View(), "[]] forward")

	h.run(t, h.send(key("]")))
	assert.Equal(t, "/clients", h.model.Path())
	assert.NotContains(t, h.model.View(), "[]] forward")
}

type lastRoute struct {
	saved []string
}

func (l *lastRoute) SetLastRoute(path string) error {
	l.saved = append(l.saved, path)
	return nil
}

func TestModel_RemembersLastRoute(t *testing.T) {
	h := newHarness(t)
	prefs := &lastRoute{}
	h.model.deps.Prefs = prefs

	h.goTo(t, route.LoginPath)
	assert.Empty(t, prefs.saved, "public pages are not remembered")

	h.login(t, "ops")
	h.goTo(t, "/clients")
	h.goTo(t, "/inbounds")
	assert.Equal(t, []string{"/clients", "/inbounds"}, prefs.saved)
}

func TestModel_HeaderShowsExpiredSession(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ops")
	h.goTo(t, route.DashboardPath)
	assert.NotContains(t, h.model.View(), "expired")

	exp := h.store.Snapshot().ExpiresAt
	require.False(t, exp.IsZero())
	h.clock.Set(exp.Add(time.Second))
	assert.Contains(t, h.model.View(), "expired")
}

func TestModel_TickDropsIdleLoginThrottles(t *testing.T) {
	h := newHarness(t)
	var buf bytes.Buffer
	h.model.deps.Logger = logging.New(logging.Config{Level: logging.LevelDebug, Output: &buf})
	h.goTo(t, route.LoginPath)
	h.send(h.model.attemptLogin("ops", "wrong")())

	h.send(tickMsg(h.clock.Now()))
	assert.NotContains(t, buf.String(), "dropped idle login throttles")

	h.clock.Advance(2 * loginWindow)
	h.send(tickMsg(h.clock.Now()))
	assert.Contains(t, buf.String(), "dropped idle login throttles")
	assert.Contains(t, buf.String(), "count=1")
}

func TestModel_Toasts(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 5; i++ {
		h.send(toastMsg(notification.Notification{Level: notification.LevelInfo, Message: string(rune('a' + i))}))
	}
	assert.Equal(t, []string{"c", "d", "e"}, h.toastMessages())

	h.send(tickMsg(h.clock.Now().Add(toastTTL + time.Second)))
	assert.Empty(t, h.model.toasts)
}

func TestModel_AutoRefresh(t *testing.T) {
	h := newHarness(t)
	h.model.deps.Refresh = 10 * time.Second
	h.login(t, "ops")
	h.goTo(t, "/outbounds")

	cmd := h.send(tickMsg(h.clock.Now().Add(time.Second)))
	assert.NotNil(t, cmd)
	assert.Equal(t, h.clock.Now(), h.model.lastLoad)

	h.send(tickMsg(h.clock.Now().Add(11 * time.Second)))
	assert.Equal(t, h.clock.Now().Add(11*time.Second), h.model.lastLoad)
}

func TestSettings_Actions(t *testing.T) {
	h := newHarness(t)
	h.login(t, "root")
	h.goTo(t, "/settings")

	msg := h.model.settings.HandleKey("x", h.model.deps.API)()
	action, ok := msg.(actionMsg)
	require.True(t, ok)
	require.NoError(t, action.err)
	assert.Equal(t, "Xray reloaded", action.text)
	assert.Equal(t, 1, h.panel.Hits(http.MethodPost, "system/reload"))

	assert.Nil(t, h.model.settings.HandleKey("z", h.model.deps.API))
}

func TestProgressBar(t *testing.T) {
	assert.Contains(t, progressBar(0.5), "50%")
	assert.Contains(t, progressBar(-1), "0%")
	assert.Contains(t, progressBar(3), "100%")
	assert.InDelta(t, 2.0, avg([]float64{1, 2, 3}), 0.001)
	assert.Zero(t, avg(nil))
}
