// Package tui is the interactive console. Every screen change goes through
// the route navigator, so the guard decides what the operator sees; the
// console reacts to session events by revalidating the current route.
package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/message"

	"github.com/y-ui/yuictl/internal/api"
	"github.com/y-ui/yuictl/internal/clock"
	"github.com/y-ui/yuictl/internal/events"
	"github.com/y-ui/yuictl/internal/i18n"
	"github.com/y-ui/yuictl/internal/logging"
	"github.com/y-ui/yuictl/internal/notification"
	"github.com/y-ui/yuictl/internal/ratelimit"
	"github.com/y-ui/yuictl/internal/route"
	"github.com/y-ui/yuictl/internal/session"
)

const (
	toastTTL    = 5 * time.Second
	maxToasts   = 3
	tickEvery   = time.Second
	callTimeout = 20 * time.Second

	// The panel accepts five logins per minute from one address.
	loginAttempts = 5
	loginWindow   = time.Minute
)

// Deps wires the console to the rest of the application.
type Deps struct {
	Session   *session.Store
	API       *api.API
	Navigator *route.Navigator
	Routes    *route.Table
	Toasts    <-chan notification.Notification
	Printer   *message.Printer
	Logger    *logging.Logger
	Clock     clock.Clock
	Prefs     RoutePrefs    // optional; remembers the last page across runs
	Landing   string        // first route after start and after login
	Refresh   time.Duration // zero disables auto-refresh
}

// RoutePrefs records the page the console was last on.
type RoutePrefs interface {
	SetLastRoute(path string) error
}

// Messages
type (
	changeMsg struct {
		change route.Change
		err    error
	}
	sessionMsg events.Event
	toastMsg   notification.Notification
	tickMsg    time.Time
	loadedMsg  struct {
		path string
		data any
		err  error
	}
	authMsg struct {
		op      string // "login", "init", "logout"
		account string
		err     error
	}
	initCheckMsg struct {
		initialized bool
		err         error
	}
	actionMsg struct {
		text string
		err  error
	}
)

type toast struct {
	notification.Notification
	expires time.Time
}

// Model is the console state.
type Model struct {
	deps   Deps
	events <-chan events.Event

	path   string
	Width  int
	Height int

	login     *formView
	setup     *formView
	dashboard *DashboardModel
	settings  *SettingsModel
	tables    map[string]*TableModel

	toasts   []toast
	lastLoad time.Time
	attempts *ratelimit.Limiter
}

// NewModel creates the console. Call Close when the program exits.
func NewModel(deps Deps) Model {
	if deps.Printer == nil {
		deps.Printer = i18n.NewPrinter(i18n.DefaultLang)
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Routes == nil {
		deps.Routes = route.Default()
	}
	if deps.Landing == "" {
		deps.Landing = route.DashboardPath
	}
	deps.Clock = clock.OrReal(deps.Clock)

	return Model{
		deps:      deps,
		events:    deps.Session.Subscribe(16),
		dashboard: NewDashboardModel(deps.Printer),
		settings:  NewSettingsModel(deps.Printer),
		tables:    newTables(deps.Printer),
		attempts:  ratelimit.NewLimiter(loginAttempts, loginWindow, deps.Clock),
	}
}

// Close releases the session subscription.
func (m Model) Close() {
	m.deps.Session.Unsubscribe(m.events)
}

// Path is the route currently on screen.
func (m Model) Path() string { return m.path }

// Init navigates to the landing route and starts the background listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.navigate(m.deps.Landing),
		waitEvent(m.events),
		waitToast(m.deps.Toasts),
		tick(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		for _, t := range m.tables {
			t.Resize(msg.Width, msg.Height)
		}
		return m, m.updateForm(msg)

	case changeMsg:
		return m.handleChange(msg)

	case sessionMsg:
		var cmd tea.Cmd
		m, cmd = m.handleSession(events.Event(msg))
		return m, tea.Batch(cmd, waitEvent(m.events))

	case toastMsg:
		m.push(notification.Notification(msg))
		return m, waitToast(m.deps.Toasts)

	case tickMsg:
		now := time.Time(msg)
		m.expireToasts(now)
		if n := m.attempts.CleanupExpired(loginWindow); n > 0 {
			m.deps.Logger.Debug("dropped idle login throttles", "count", n)
		}
		cmds := []tea.Cmd{tick()}
		if m.deps.Refresh > 0 && m.isDataView() && now.Sub(m.lastLoad) >= m.deps.Refresh {
			m.lastLoad = now
			cmds = append(cmds, m.load(m.path))
		}
		return m, tea.Batch(cmds...)

	case loadedMsg:
		if msg.path != m.path {
			return m, nil
		}
		m.apply(msg)
		return m, nil

	case authMsg:
		return m.handleAuth(msg)

	case initCheckMsg:
		if msg.err == nil && !msg.initialized && m.path == route.LoginPath {
			m.notify(notification.LevelInfo, m.deps.Printer.Sprintf("Panel is not initialized, run init first"))
			return m, m.navigate(route.InitPath)
		}
		return m, nil

	case actionMsg:
		if msg.err == nil {
			m.notify(notification.LevelSuccess, msg.text)
			return m, m.load(m.path)
		}
		return m, nil
	}

	return m, m.updateForm(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if f := m.activeForm(); f != nil {
		return m, m.updateForm(msg)
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "tab", "shift+tab":
		return m, m.cycle(key == "tab")
	case "[", "alt+left":
		return m, m.step(m.deps.Navigator.Back)
	case "]", "alt+right":
		return m, m.step(m.deps.Navigator.Forward)
	case "L":
		return m, m.logout()
	case "r":
		m.lastLoad = m.deps.Clock.Now()
		return m, m.load(m.path)
	}

	if n, err := strconv.Atoi(key); err == nil && n >= 1 {
		menu := m.menu()
		if n <= len(menu) {
			return m, m.navigate(menu[n-1].Path)
		}
		return m, nil
	}

	switch m.path {
	case route.DashboardPath:
		return m, nil
	case "/settings":
		return m, m.settings.HandleKey(key, m.deps.API)
	}
	if t, ok := m.tables[m.path]; ok {
		page, changed := t.HandleKey(msg)
		if changed {
			return m, m.loadPage(m.path, page)
		}
	}
	return m, nil
}

func (m Model) handleChange(msg changeMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.notify(notification.LevelError, msg.err.Error())
		return m, nil
	}
	c := msg.change
	if c.To == "" {
		return m, nil
	}

	for _, d := range c.Decisions {
		if d.Reason == route.ReasonNotAdmin {
			title := d.Path
			if d.Route.Title != "" {
				title = m.deps.Printer.Sprintf(d.Route.Title)
			}
			m.notify(notification.LevelWarning, m.deps.Printer.Sprintf("Access denied, %s requires administrator rights", title))
		}
	}

	m.deps.Logger.Debug("route change", "from", c.From, "to", c.To, "redirected", c.Redirected())
	if c.To == m.path && !c.Redirected() {
		return m, nil
	}
	m.path = c.To
	m.lastLoad = m.deps.Clock.Now()
	m.remember(c.To)

	switch c.To {
	case route.LoginPath:
		m.login = newLoginForm(m.deps.Printer)
		return m, tea.Batch(m.login.form.Init(), m.checkInitialized())
	case route.InitPath:
		m.setup = newSetupForm(m.deps.Printer)
		return m, m.setup.form.Init()
	}
	return m, m.load(c.To)
}

// handleSession revalidates the route whenever the session changes shape.
func (m Model) handleSession(e events.Event) (Model, tea.Cmd) {
	switch e.Type {
	case events.EventForcedLogout:
		m.notify(notification.LevelWarning, m.deps.Printer.Sprintf("Session expired, please log in again"))
		return m, m.revalidate()
	case events.EventLogout, events.EventProfile:
		return m, m.revalidate()
	}
	return m, nil
}

func (m Model) handleAuth(msg authMsg) (tea.Model, tea.Cmd) {
	p := m.deps.Printer
	switch msg.op {
	case "login":
		if msg.err != nil {
			m.login = newLoginForm(p)
			m.login.err = msg.err
			return m, m.login.form.Init()
		}
		m.attempts.Reset(msg.account)
		snap := m.deps.Session.Snapshot()
		m.notify(notification.LevelSuccess, p.Sprintf("Logged in as %s (%s)", snap.Identity.Name(), snap.Role()))
		return m, m.navigate(m.deps.Landing)

	case "init":
		if msg.err != nil {
			m.setup = newSetupForm(p)
			m.setup.err = msg.err
			return m, m.setup.form.Init()
		}
		m.notify(notification.LevelSuccess, p.Sprintf("Panel initialized, log in as %s", msg.account))
		return m, m.navigate(route.LoginPath)

	case "logout":
		m.notify(notification.LevelInfo, p.Sprintf("Logged out"))
		return m, m.revalidate()
	}
	return m, nil
}

// --- commands ---

func (m Model) navigate(path string) tea.Cmd {
	nav := m.deps.Navigator
	return func() tea.Msg {
		c, err := nav.Navigate(path)
		return changeMsg{change: c, err: err}
	}
}

func (m Model) revalidate() tea.Cmd {
	nav := m.deps.Navigator
	return func() tea.Msg {
		c, err := nav.Revalidate()
		return changeMsg{change: c, err: err}
	}
}

func (m Model) step(fn func() (route.Change, error)) tea.Cmd {
	return func() tea.Msg {
		c, err := fn()
		if err != nil {
			return nil
		}
		return changeMsg{change: c}
	}
}

func (m Model) cycle(forward bool) tea.Cmd {
	menu := m.menu()
	if len(menu) == 0 {
		return nil
	}
	idx := 0
	for i, r := range menu {
		if r.Path == m.path {
			idx = i
			if forward {
				idx = (i + 1) % len(menu)
			} else {
				idx = (i - 1 + len(menu)) % len(menu)
			}
			break
		}
	}
	return m.navigate(menu[idx].Path)
}

func (m Model) logout() tea.Cmd {
	s := m.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return authMsg{op: "logout", err: s.Logout(ctx)}
	}
}

func (m Model) submitLogin(account, password string) tea.Cmd {
	s := m.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		snap, err := s.Login(ctx, account, password)
		if err == nil && snap.Identity == nil {
			err = s.FetchProfile(ctx)
		}
		return authMsg{op: "login", account: account, err: err}
	}
}

// attemptLogin submits a login unless the account is over its attempt
// budget.
func (m Model) attemptLogin(account, password string) tea.Cmd {
	if !m.attempts.Allow(account) {
		wait := m.attempts.Wait(account).Round(time.Second)
		err := errors.New(m.deps.Printer.Sprintf("Too many login attempts, try again in %s", wait))
		return func() tea.Msg { return authMsg{op: "login", account: account, err: err} }
	}
	return m.submitLogin(account, password)
}

func (m Model) submitSetup(account, password string) tea.Cmd {
	s := m.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return authMsg{op: "init", account: account, err: s.InitAdmin(ctx, account, password)}
	}
}

func (m Model) checkInitialized() tea.Cmd {
	s := m.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		ok, err := s.CheckInitialized(ctx)
		return initCheckMsg{initialized: ok, err: err}
	}
}

func (m Model) load(path string) tea.Cmd {
	page := 1
	if t, ok := m.tables[path]; ok {
		page = t.Page
	}
	return m.loadPage(path, page)
}

func (m Model) loadPage(path string, page int) tea.Cmd {
	a := m.deps.API
	var fetch func(ctx context.Context) (any, error)
	switch path {
	case route.DashboardPath:
		fetch = func(ctx context.Context) (any, error) { return fetchDashboard(ctx, a) }
	case "/settings":
		fetch = func(ctx context.Context) (any, error) { return fetchSettings(ctx, a) }
	default:
		t, ok := m.tables[path]
		if !ok {
			return nil
		}
		fetch = func(ctx context.Context) (any, error) { return t.fetch(ctx, a, page) }
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		data, err := fetch(ctx)
		return loadedMsg{path: path, data: data, err: err}
	}
}

func waitEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return sessionMsg(e)
	}
}

func waitToast(ch <-chan notification.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg(n)
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// --- state helpers ---

// remember saves path as the page to reopen on. Public pages are skipped.
func (m Model) remember(path string) {
	if m.deps.Prefs == nil {
		return
	}
	if r, ok := m.deps.Routes.Lookup(path); !ok || r.Access == route.Public {
		return
	}
	if err := m.deps.Prefs.SetLastRoute(path); err != nil {
		m.deps.Logger.Warn("failed to save last route", "path", path, "error", err)
	}
}

func (m Model) menu() []route.Route {
	return m.deps.Routes.Menu(m.deps.Session.Snapshot())
}

func (m Model) isDataView() bool {
	if m.path == route.DashboardPath || m.path == "/settings" {
		return true
	}
	_, ok := m.tables[m.path]
	return ok
}

func (m Model) activeForm() *formView {
	switch m.path {
	case route.LoginPath:
		return m.login
	case route.InitPath:
		return m.setup
	}
	return nil
}

// updateForm forwards msg to the active form and submits it once complete.
func (m Model) updateForm(msg tea.Msg) tea.Cmd {
	f := m.activeForm()
	if f == nil {
		return nil
	}
	cmd := f.Update(msg)
	if !f.Completed() {
		return cmd
	}
	switch f {
	case m.login:
		return m.attemptLogin(f.values.Account, f.values.Password)
	case m.setup:
		return m.submitSetup(f.values.Account, f.values.Password)
	}
	return cmd
}

func (m Model) apply(msg loadedMsg) {
	switch msg.path {
	case route.DashboardPath:
		m.dashboard.Apply(msg.data, msg.err)
	case "/settings":
		m.settings.Apply(msg.data, msg.err)
	default:
		if t, ok := m.tables[msg.path]; ok {
			t.Apply(msg.data, msg.err)
		}
	}
}

func (m *Model) notify(level, text string) {
	m.push(notification.Notification{Level: level, Message: text, Timestamp: m.deps.Clock.Now()})
}

func (m *Model) push(n notification.Notification) {
	m.toasts = append(m.toasts, toast{Notification: n, expires: m.deps.Clock.Now().Add(toastTTL)})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

func (m *Model) expireToasts(now time.Time) {
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if now.Before(t.expires) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

// --- rendering ---

// View renders the application
func (m Model) View() string {
	doc := m.viewTopBar() + "\n"

	switch m.path {
	case "":
		doc += m.deps.Printer.Sprintf("Loading...")
	case route.LoginPath:
		doc += m.login.View(m.deps.Printer.Sprintf("Log in"))
	case route.InitPath:
		doc += m.setup.View(m.deps.Printer.Sprintf("Setup"))
	case route.DashboardPath:
		doc += m.dashboard.View()
	case "/settings":
		doc += m.settings.View()
	default:
		if t, ok := m.tables[m.path]; ok {
			doc += t.View()
		}
	}

	if len(m.toasts) > 0 {
		var items []string
		for _, t := range m.toasts {
			items = append(items, toastStyle(t.Level).Render(t.Message))
		}
		doc += "\n" + lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	doc += StyleHelp.Render(m.helpLine())
	return StyleApp.Render(doc)
}

// helpLine lists the keys that do something on the current screen.
func (m Model) helpLine() string {
	p := m.deps.Printer
	keys := []string{p.Sprintf("[1-9/tab] switch")}
	if m.deps.Navigator.CanBack() {
		keys = append(keys, p.Sprintf("[[] back"))
	}
	if m.deps.Navigator.CanForward() {
		keys = append(keys, p.Sprintf("[]] forward"))
	}
	keys = append(keys, p.Sprintf("[r] refresh"), p.Sprintf("[L] logout"), p.Sprintf("[q] quit"))
	return strings.Join(keys, "  ")
}

// viewTopBar renders the menu the current principal may enter.
func (m Model) viewTopBar() string {
	items := []string{StyleTitle.Render("y-ui ")}
	for i, r := range m.menu() {
		key := StyleMenuKey.Render("[" + strconv.Itoa(i+1) + "]")
		label := key + " " + m.deps.Printer.Sprintf(r.Title)
		if r.Path == m.path {
			items = append(items, StyleMenuItemActive.Render(label))
		} else {
			items = append(items, StyleMenuItem.Render(label))
		}
	}

	snap := m.deps.Session.Snapshot()
	who := m.deps.Printer.Sprintf("Not logged in")
	if snap.IsAuthenticated() {
		who = snap.Identity.Name()
		if who == "" {
			who = "…"
		}
		who += " · " + snap.Role().String()
		if snap.Expired(m.deps.Clock.Now()) {
			who += " · " + m.deps.Printer.Sprintf("expired")
		}
	}
	items = append(items, StyleIdentity.Render(who))

	return StyleTopBar.Render(lipgloss.JoinHorizontal(lipgloss.Top, items...))
}

// errText renders a view-level load error.
func errText(err error) string {
	var msg string
	if err != nil {
		msg = err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	return StyleStatusBad.Render(msg)
}
