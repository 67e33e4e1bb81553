package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y-ui/yuictl/internal/events"
	"github.com/y-ui/yuictl/internal/logging"
	"github.com/y-ui/yuictl/internal/metrics"
	"github.com/y-ui/yuictl/internal/state"
	tu "github.com/y-ui/yuictl/internal/testutil"
	"github.com/y-ui/yuictl/internal/transport"
)

type harness struct {
	panel   *tu.Panel
	client  *transport.Client
	store   *Store
	storage *state.MemoryTokenStorage
	metrics *metrics.Registry
	hub     *events.Hub
}

func newHarness(t *testing.T, storedToken string) *harness {
	t.Helper()
	h := &harness{
		panel:   tu.NewPanel(t),
		storage: state.NewMemoryTokenStorage(storedToken),
		metrics: metrics.New(),
		hub:     events.NewHub(),
	}

	h.client = transport.New(transport.Config{Server: h.panel.URL(), Timeout: 5 * time.Second},
		transport.WithLogger(logging.Discard()),
		transport.WithTokenSource(transport.TokenFunc(func() string { return h.store.Token() })),
	)

	var err error
	h.store, err = New(Options{
		Transport: h.client,
		Storage:   h.storage,
		Events:    h.hub,
		Logger:    logging.Discard(),
		Metrics:   h.metrics,
	})
	require.NoError(t, err)
	t.Cleanup(h.store.Close)
	return h
}

// get sends an authenticated GET through the real transport.
func (h *harness) get(ctx context.Context, path string) error {
	_, err := h.client.Call(ctx, http.MethodGet, path, nil, nil, nil)
	return err
}

func assertLoggedOut(t *testing.T, h *harness) {
	t.Helper()
	snap := h.store.Snapshot()
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.Identity)
	assert.False(t, h.storage.Present(), "stored token must be removed")
}

func TestNew_RestoresToken(t *testing.T) {
	h := newHarness(t, "restored")
	snap := h.store.Snapshot()
	assert.Equal(t, "restored", snap.Token)
	assert.Nil(t, snap.Identity, "identity is only loaded by FetchProfile")
	assert.Equal(t, StateUnprivileged, snap.State())
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t, "")
	h.panel.AddUser("a@x.com", "secret1", "operator")

	snap, err := h.store.Login(tu.Context(t), "a@x.com", "secret1")
	require.NoError(t, err)

	assert.NotEmpty(t, snap.Token)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "a@x.com", snap.Identity.Username)
	assert.Equal(t, RoleOperator, snap.Identity.Role)
	assert.True(t, snap.IsOperatorOrAbove())
	assert.False(t, snap.IsAdmin())
	assert.False(t, snap.ExpiresAt.IsZero())

	stored, _ := h.storage.Load()
	assert.Equal(t, snap.Token, stored)
	assert.Equal(t, snap, h.store.Snapshot())

	req, ok := h.panel.LastRequest(http.MethodPost, "auth/login")
	require.True(t, ok)
	body := tu.DecodeBody(t, req)
	assert.Equal(t, "a@x.com", body["username"])
	assert.Equal(t, "a@x.com", body["email"])

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SessionTransitions.WithLabelValues("login")))
}

func TestLogin_BadCredentialsLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, "")
	h.panel.AddUser("admin", "secret1", "admin")

	before, err := h.store.Login(tu.Context(t), "admin", "secret1")
	require.NoError(t, err)

	_, err = h.store.Login(tu.Context(t), "admin", "wrong")
	require.Error(t, err)
	assert.True(t, transport.IsDomain(err))
	assert.Equal(t, "wrong password", transport.Message(err))

	assert.Equal(t, before, h.store.Snapshot())
	stored, _ := h.storage.Load()
	assert.Equal(t, before.Token, stored)
}

func TestLogin_PersistFailureRollsBack(t *testing.T) {
	h := newHarness(t, "")
	h.panel.AddUser("admin", "secret1", "admin")
	h.storage.FailSave = errors.New("disk full")

	_, err := h.store.Login(tu.Context(t), "admin", "secret1")
	require.ErrorContains(t, err, "disk full")
	assert.Empty(t, h.store.Snapshot().Token)
}

func TestLogin_MissingTokenIsMalformed(t *testing.T) {
	ft := &fakeTransport{responses: map[string]any{"POST auth/login": map[string]any{"user": map[string]any{"id": 1}}}}
	s, err := New(Options{Transport: ft, Logger: logging.Discard()})
	require.NoError(t, err)

	_, err = s.Login(context.Background(), "admin", "pw")
	assert.ErrorIs(t, err, ErrMalformedLogin)
	assert.Empty(t, s.Snapshot().Token)
}

func TestLogin_MissingUserAcceptedWithoutIdentity(t *testing.T) {
	ft := &fakeTransport{responses: map[string]any{"POST auth/login": map[string]any{"token": "opaque"}}}
	s, err := New(Options{Transport: ft, Logger: logging.Discard()})
	require.NoError(t, err)

	snap, err := s.Login(context.Background(), "admin", "pw")
	require.NoError(t, err)
	assert.Equal(t, "opaque", snap.Token)
	assert.Nil(t, snap.Identity)
	assert.True(t, snap.Valid())
}

func TestLogout_ClearsEverything(t *testing.T) {
	h := newHarness(t, "")
	h.panel.AddUser("admin", "secret1", "admin")
	_, err := h.store.Login(tu.Context(t), "admin", "secret1")
	require.NoError(t, err)

	require.NoError(t, h.store.Logout(tu.Context(t)))
	assertLoggedOut(t, h)
	assert.Equal(t, 1, h.panel.Hits(http.MethodPost, "auth/logout"))
}

func TestLogout_BackendFailureStillClears(t *testing.T) {
	for name, fail := range map[string]func(p *tu.Panel){
		"server error": func(p *tu.Panel) { p.Fail(http.MethodPost, "auth/logout", http.StatusInternalServerError, 500, "boom") },
		"domain error": func(p *tu.Panel) { p.Fail(http.MethodPost, "auth/logout", http.StatusOK, 9, "nope") },
		"unauthorized": func(p *tu.Panel) { p.Fail(http.MethodPost, "auth/logout", http.StatusUnauthorized, 401, "expired") },
		"unreachable":  func(p *tu.Panel) { p.Server.Close() },
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, "")
			h.panel.AddUser("admin", "secret1", "admin")
			_, err := h.store.Login(tu.Context(t), "admin", "secret1")
			require.NoError(t, err)

			fail(h.panel)
			require.NoError(t, h.store.Logout(tu.Context(t)))
			assertLoggedOut(t, h)
		})
	}
}

func TestLogout_Timeout(t *testing.T) {
	h := newHarness(t, "stale")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.store.Logout(ctx))
	assertLoggedOut(t, h)
}

func TestLogout_StorageErrorReturned(t *testing.T) {
	h := newHarness(t, "stale")
	h.storage.FailRemove = errors.New("read-only")

	err := h.store.Logout(tu.Context(t))
	assert.ErrorContains(t, err, "read-only")
	assert.Empty(t, h.store.Snapshot().Token, "memory state is cleared even when storage fails")
}

func TestFetchProfile_NoTokenNoNetwork(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.store.FetchProfile(tu.Context(t)))
	assert.Empty(t, h.panel.Requests())
	assert.Equal(t, uint64(0), h.store.Snapshot().Generation)
}

func TestFetchProfile_LoadsIdentity(t *testing.T) {
	h := newHarness(t, "")
	h.panel.AddUser("root", "secret1", "admin")
	h.storage = state.NewMemoryTokenStorage(h.panel.Token("root"))

	s, err := New(Options{Transport: h.client, Storage: h.storage, Logger: logging.Discard()})
	require.NoError(t, err)
	defer s.Close()
	h.store = s

	require.NoError(t, s.FetchProfile(tu.Context(t)))
	snap := s.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "root", snap.Identity.Username)
	assert.True(t, snap.IsAdmin())
	assert.Equal(t, StatePrivileged, snap.State())
	assert.False(t, snap.ExpiresAt.IsZero(), "expiry read from the JWT exp claim")
}

func TestFetchProfile_FailureLogsOut(t *testing.T) {
	for name, fail := range map[string]func(p *tu.Panel){
		"domain error": func(p *tu.Panel) { p.Fail(http.MethodGet, "auth/profile", http.StatusOK, tu.CodeProfileFailed, "user not found") },
		"server error": func(p *tu.Panel) { p.Fail(http.MethodGet, "auth/profile", http.StatusBadGateway, 0, "bad gateway") },
		"unauthorized": func(p *tu.Panel) {},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, "not-a-valid-token")
			fail(h.panel)

			err := h.store.FetchProfile(tu.Context(t))
			require.Error(t, err)
			assertLoggedOut(t, h)
		})
	}
}

func TestUnauthorizedOnUnrelatedCallForcesLogout(t *testing.T) {
	h := newHarness(t, "")
	h.panel.AddUser("op", "secret1", "operator")
	_, err := h.store.Login(tu.Context(t), "op", "secret1")
	require.NoError(t, err)

	sub := h.store.Subscribe(8)
	unauthorized := h.hub.Subscribe(8, events.EventUnauthorized)

	h.panel.RevokeAll()
	err = h.get(tu.Context(t), "clients")
	require.True(t, transport.IsUnauthorized(err))
	assertLoggedOut(t, h)

	select {
	case e := <-sub:
		assert.Equal(t, events.EventForcedLogout, e.Type)
		data := e.Data.(events.SessionData)
		assert.Equal(t, "anonymous", data.State)
	case <-time.After(time.Second):
		t.Fatal("no forced logout event")
	}
	select {
	case e := <-unauthorized:
		assert.Equal(t, "clients", e.Data.(events.UnauthorizedData).Path)
	case <-time.After(time.Second):
		t.Fatal("no unauthorized event")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SessionTransitions.WithLabelValues("forced_logout")))
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t, "")
	assert.ErrorIs(t, h.store.ChangePassword(tu.Context(t), "a", "bbbbbb"), ErrNoSession)

	h.panel.AddUser("admin", "secret1", "admin")
	_, err := h.store.Login(tu.Context(t), "admin", "secret1")
	require.NoError(t, err)
	gen := h.store.Snapshot().Generation

	assert.Error(t, h.store.ChangePassword(tu.Context(t), "secret1", "abc"), "too short")
	assert.Equal(t, 0, h.panel.Hits(http.MethodPut, "auth/password"))

	err = h.store.ChangePassword(tu.Context(t), "wrong", "n3w-Secret")
	assert.True(t, transport.IsDomain(err))

	require.NoError(t, h.store.ChangePassword(tu.Context(t), "secret1", "n3w-Secret"))
	assert.Equal(t, gen, h.store.Snapshot().Generation, "password change is not a session transition")

	require.NoError(t, h.store.Logout(tu.Context(t)))
	_, err = h.store.Login(tu.Context(t), "admin", "n3w-Secret")
	assert.NoError(t, err)
}

func TestInitAdminAndCheck(t *testing.T) {
	h := newHarness(t, "")

	ok, err := h.store.CheckInitialized(tu.Context(t))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.store.InitAdmin(tu.Context(t), "root@x.com", "secret1"))
	assert.Empty(t, h.store.Snapshot().Token, "init does not log in")

	ok, err = h.store.CheckInitialized(tu.Context(t))
	require.NoError(t, err)
	assert.True(t, ok)

	err = h.store.InitAdmin(tu.Context(t), "other@x.com", "secret1")
	assert.True(t, transport.IsDomain(err))

	_, err = h.store.Login(tu.Context(t), "root@x.com", "secret1")
	assert.NoError(t, err)
}

// fakeTransport answers from a fixed table. Calls listed in gate announce
// themselves on entered and block until the gate is closed, so tests can
// interleave transitions deterministically.
type fakeTransport struct {
	responses map[string]any
	errs      map[string]error
	gate      map[string]chan struct{}
	entered   chan string
	hooks     []transport.UnauthorizedHook
}

func (f *fakeTransport) Call(_ context.Context, method, path string, _ url.Values, _, result any) (string, error) {
	key := method + " " + path
	if ch, ok := f.gate[key]; ok {
		f.entered <- key
		<-ch
	}
	if err := f.errs[key]; err != nil {
		return "", err
	}
	if data, ok := f.responses[key]; ok && result != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return "", err
		}
		env := transport.Envelope{Data: raw}
		return "ok", env.Decode(result)
	}
	return "ok", nil
}

func (f *fakeTransport) OnUnauthorized(h transport.UnauthorizedHook) func() {
	f.hooks = append(f.hooks, h)
	return func() {}
}

func TestLogin_SupersededByLogout(t *testing.T) {
	gate := make(chan struct{})
	ft := &fakeTransport{
		responses: map[string]any{"POST auth/login": map[string]any{
			"token": "late",
			"user":  map[string]any{"id": 1, "username": "admin", "role": "admin"},
		}},
		gate:    map[string]chan struct{}{"POST auth/login": gate},
		entered: make(chan string, 1),
	}
	storage := state.NewMemoryTokenStorage("")
	s, err := New(Options{Transport: ft, Storage: storage, Logger: logging.Discard()})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), "admin", "pw")
		done <- err
	}()

	// A logout lands while the login is still in flight.
	<-ft.entered
	s.ForceLogout("test")
	close(gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Empty(t, s.Snapshot().Token)
	assert.False(t, storage.Present())
}

func TestFetchProfile_SupersededByLogin(t *testing.T) {
	gate := make(chan struct{})
	ft := &fakeTransport{
		responses: map[string]any{
			"GET auth/profile": map[string]any{"id": 1, "username": "old", "role": "viewer"},
			"POST auth/login": map[string]any{
				"token": "new",
				"user":  map[string]any{"id": 2, "username": "new", "role": "admin"},
			},
		},
		gate:    map[string]chan struct{}{"GET auth/profile": gate},
		entered: make(chan string, 1),
	}
	s, err := New(Options{Transport: ft, Storage: state.NewMemoryTokenStorage("old"), Logger: logging.Discard()})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.FetchProfile(context.Background()) }()

	<-ft.entered
	_, err = s.Login(context.Background(), "new", "pw")
	require.NoError(t, err)
	close(gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	snap := s.Snapshot()
	assert.Equal(t, "new", snap.Token)
	assert.Equal(t, "new", snap.Identity.Username, "stale profile must not overwrite the new identity")
}

func TestFetchProfile_StaleFailureDoesNotLogOutNewSession(t *testing.T) {
	gate := make(chan struct{})
	ft := &fakeTransport{
		responses: map[string]any{"POST auth/login": map[string]any{
			"token": "new",
			"user":  map[string]any{"id": 2, "username": "new", "role": "admin"},
		}},
		errs: map[string]error{"GET auth/profile": &transport.Error{Kind: transport.KindNetwork, Message: "network error"}},
		gate:    map[string]chan struct{}{"GET auth/profile": gate},
		entered: make(chan string, 1),
	}
	s, err := New(Options{Transport: ft, Storage: state.NewMemoryTokenStorage("old"), Logger: logging.Discard()})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.FetchProfile(context.Background()) }()

	<-ft.entered
	_, err = s.Login(context.Background(), "new", "pw")
	require.NoError(t, err)
	close(gate)

	assert.Error(t, <-done)
	assert.Equal(t, "new", s.Snapshot().Token)
}

func TestUnauthorizedForPreviousTokenKeepsNewSession(t *testing.T) {
	ft := &fakeTransport{
		responses: map[string]any{"POST auth/login": map[string]any{
			"token": "second",
			"user":  map[string]any{"id": 2, "username": "ops", "role": "operator"},
		}},
	}
	storage := state.NewMemoryTokenStorage("first")
	s, err := New(Options{Transport: ft, Storage: storage, Logger: logging.Discard()})
	require.NoError(t, err)
	require.Len(t, ft.hooks, 1)

	_, err = s.Login(context.Background(), "ops", "pw")
	require.NoError(t, err)

	// A request sent with the first token is rejected after the second login.
	ft.hooks[0](&transport.Error{Kind: transport.KindUnauthorized, Method: http.MethodGet, Path: "clients", TokenID: transport.TokenID("first")})
	assert.Equal(t, "second", s.Snapshot().Token)
	assert.True(t, storage.Present())

	ft.hooks[0](&transport.Error{Kind: transport.KindUnauthorized, Method: http.MethodGet, Path: "clients", TokenID: transport.TokenID("second")})
	assert.Empty(t, s.Snapshot().Token)
	assert.False(t, storage.Present())
}

func TestChangePassword_ComparesWithUsername(t *testing.T) {
	ft := &fakeTransport{
		responses: map[string]any{"POST auth/login": map[string]any{
			"token": "tok",
			"user":  map[string]any{"id": 3, "username": "operator1", "nickname": "Night Shift", "role": "operator"},
		}},
	}
	s, err := New(Options{Transport: ft, Storage: state.NewMemoryTokenStorage(""), Logger: logging.Discard()})
	require.NoError(t, err)
	_, err = s.Login(context.Background(), "operator1", "pw")
	require.NoError(t, err)
	require.Equal(t, "Night Shift", s.Snapshot().Identity.Name())

	err = s.ChangePassword(context.Background(), "pw", "OPERATOR1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account name")

	assert.NoError(t, s.ChangePassword(context.Background(), "pw", "night shift"))
}

func TestInvariantHoldsAcrossTransitions(t *testing.T) {
	h := newHarness(t, "")
	h.panel.AddUser("admin", "secret1", "admin")
	ctx := tu.Context(t)

	steps := []func(){
		func() { _, _ = h.store.Login(ctx, "admin", "secret1") },
		func() { _ = h.store.FetchProfile(ctx) },
		func() { _, _ = h.store.Login(ctx, "admin", "bad") },
		func() { h.store.ForceLogout("test") },
		func() { _ = h.store.FetchProfile(ctx) },
		func() { _, _ = h.store.Login(ctx, "admin", "secret1") },
		func() { _ = h.store.Logout(ctx) },
	}
	for i, step := range steps {
		step()
		snap := h.store.Snapshot()
		assert.True(t, snap.Valid(), "step %d: identity without token", i)
	}
}
