// Package session holds the console's authentication state: the panel token,
// the logged-in identity and every transition between them.
//
// A Store is the single owner of that state for the life of the process. All
// mutations go through Login, Logout, FetchProfile and ForceLogout; readers
// take a Snapshot. Each transition bumps a generation counter, and the result
// of a network call is applied only if no other transition happened while it
// was in flight.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/y-ui/yuictl/internal/clock"
	"github.com/y-ui/yuictl/internal/events"
	"github.com/y-ui/yuictl/internal/logging"
	"github.com/y-ui/yuictl/internal/metrics"
	"github.com/y-ui/yuictl/internal/state"
	"github.com/y-ui/yuictl/internal/transport"
)

var (
	// ErrNoSession is returned by operations that need a token when none is held.
	ErrNoSession = errors.New("not logged in")
	// ErrMalformedLogin is returned when the panel reports success but sends no token.
	ErrMalformedLogin = errors.New("login response carried no token")
	// ErrSuperseded is returned when another transition finished first and
	// the result of this call was discarded.
	ErrSuperseded = errors.New("session changed while the request was in flight")
)

// Transport is the subset of *transport.Client the store needs.
type Transport interface {
	Call(ctx context.Context, method, path string, query url.Values, body, result any) (string, error)
	OnUnauthorized(h transport.UnauthorizedHook) (unregister func())
}

// Options configures a Store.
type Options struct {
	Transport Transport
	Storage   state.TokenStorage
	Events    *events.Hub
	Logger    *logging.Logger
	Metrics   *metrics.Registry
	Clock     clock.Clock
}

// Store is the process-wide session.
type Store struct {
	mu         sync.RWMutex
	token      string
	identity   *Identity
	expiresAt  time.Time
	generation uint64

	api     Transport
	storage state.TokenStorage
	events  *events.Hub
	logger  *logging.Logger
	metrics *metrics.Registry
	clock   clock.Clock
	unhook  func()
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *Identity `json:"user"`
}

// New restores the session from storage and subscribes to the transport's
// 401 signal. The identity starts unset; call FetchProfile to load it.
func New(opts Options) (*Store, error) {
	if opts.Transport == nil {
		return nil, errors.New("session: transport is required")
	}
	if opts.Storage == nil {
		opts.Storage = state.NewMemoryTokenStorage("")
	}
	if opts.Events == nil {
		opts.Events = events.NewHub()
	}
	if opts.Logger == nil {
		opts.Logger = logging.WithComponent("session")
	}

	s := &Store{
		api:     opts.Transport,
		storage: opts.Storage,
		events:  opts.Events,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		clock:   clock.OrReal(opts.Clock),
	}

	token, err := s.storage.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session token: %w", err)
	}
	s.token = token
	s.expiresAt = tokenExpiry(token)

	if token != "" {
		s.logger.Debug("restored session", "token", tokenFingerprint(token))
	}

	s.unhook = s.api.OnUnauthorized(s.handleUnauthorized)
	return s, nil
}

// Close detaches the store from the transport. The token storage is owned by
// the caller and stays open.
func (s *Store) Close() {
	if s.unhook != nil {
		s.unhook()
		s.unhook = nil
	}
}

// Token returns the current bearer token. It satisfies transport.TokenSource
// and is safe to call on a nil Store.
func (s *Store) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Token:      s.token,
		Identity:   s.identity.clone(),
		ExpiresAt:  s.expiresAt,
		Generation: s.generation,
	}
}

// Subscribe returns a channel receiving session transition events.
func (s *Store) Subscribe(bufSize int) <-chan events.Event {
	return s.events.Subscribe(bufSize,
		events.EventLogin, events.EventLogout, events.EventForcedLogout, events.EventProfile)
}

// Unsubscribe detaches a channel returned by Subscribe.
func (s *Store) Unsubscribe(ch <-chan events.Event) {
	s.events.Unsubscribe(ch)
}

func (s *Store) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Login authenticates against the panel. On success the token and identity
// are replaced together and the token is persisted; on any failure the
// session is left exactly as it was.
func (s *Store) Login(ctx context.Context, login, password string) (Snapshot, error) {
	gen := s.currentGeneration()

	req := loginRequest{Username: login, Password: password}
	if strings.Contains(login, "@") {
		req.Email = login
	}

	var resp loginResponse
	if _, err := s.api.Call(ctx, http.MethodPost, "auth/login", nil, req, &resp); err != nil {
		s.logger.Info("login failed", "login", login, "error", transport.Message(err))
		return Snapshot{}, err
	}
	if resp.Token == "" {
		s.logger.Warn("login response without token", "login", login)
		return Snapshot{}, ErrMalformedLogin
	}
	if resp.User == nil {
		s.logger.Warn("login response without user profile", "login", login)
	}

	expires := resp.ExpiresAt
	if expires.IsZero() {
		expires = tokenExpiry(resp.Token)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Info("discarding superseded login", "login", login)
		return Snapshot{}, ErrSuperseded
	}
	if err := s.storage.Save(resp.Token); err != nil {
		s.mu.Unlock()
		return Snapshot{}, fmt.Errorf("failed to persist session token: %w", err)
	}
	s.token = resp.Token
	s.identity = resp.User.clone()
	s.expiresAt = expires
	s.generation++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.checkInvariant(snap)
	s.logger.Info("logged in", "user", snap.Identity.Name(), "role", snap.Role().String(),
		"token", tokenFingerprint(snap.Token))
	s.metrics.Transition("login")
	s.emit(events.EventLogin, snap, "")
	return snap, nil
}

// Logout ends the session. The panel is told best-effort; whatever it
// answers, the local token, identity and stored token are cleared. The only
// error returned is a failure to remove the stored token.
func (s *Store) Logout(ctx context.Context) (err error) {
	defer func() {
		if cerr := s.clear(events.EventLogout, "logout"); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if s.Token() == "" {
		return nil
	}
	if _, callErr := s.api.Call(ctx, http.MethodPost, "auth/logout", nil, nil, nil); callErr != nil {
		s.logger.Info("panel logout failed, clearing local session anyway", "error", transport.Message(callErr))
	}
	return nil
}

// ForceLogout clears the session without contacting the panel. It is the
// path taken when the panel has already rejected the token.
func (s *Store) ForceLogout(reason string) {
	if err := s.clear(events.EventForcedLogout, reason); err != nil {
		s.logger.Error("failed to remove stored token", "error", err)
	}
}

// clear resets the session and removes the stored token. Events are only
// published when there was something to clear.
func (s *Store) clear(t events.EventType, reason string) error {
	s.mu.Lock()
	had := s.token != "" || s.identity != nil
	s.token = ""
	s.identity = nil
	s.expiresAt = time.Time{}
	s.generation++
	snap := s.snapshotLocked()
	err := s.storage.Remove()
	s.mu.Unlock()

	s.checkInvariant(snap)
	if err != nil {
		err = fmt.Errorf("failed to remove session token: %w", err)
	}
	if !had {
		return err
	}

	s.logger.Info("session cleared", "reason", reason)
	if t == events.EventForcedLogout {
		s.metrics.Transition("forced_logout")
	} else {
		s.metrics.Transition("logout")
	}
	s.emit(t, snap, reason)
	return err
}

// FetchProfile loads the identity for the held token. Without a token it
// does nothing. Any failure is treated as an invalid token: the full Logout
// transition runs and the original error is returned.
func (s *Store) FetchProfile(ctx context.Context) error {
	s.mu.RLock()
	token, gen := s.token, s.generation
	s.mu.RUnlock()
	if token == "" {
		return nil
	}

	var id Identity
	if _, err := s.api.Call(ctx, http.MethodGet, "auth/profile", nil, nil, &id); err != nil {
		if s.currentGeneration() != gen {
			// A newer session owns the state now.
			return err
		}
		s.logger.Info("profile fetch failed, logging out", "error", transport.Message(err))
		if lerr := s.Logout(ctx); lerr != nil {
			s.logger.Error("logout after profile failure", "error", lerr)
		}
		return err
	}

	s.mu.Lock()
	if s.generation != gen || s.token != token {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.identity = &id
	s.generation++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.checkInvariant(snap)
	s.logger.Debug("profile loaded", "user", id.Name(), "role", id.Role.String())
	s.metrics.Transition("profile")
	s.emit(events.EventProfile, snap, "")
	return nil
}

// ChangePassword updates the logged-in account's password. The session is
// not modified; the panel keeps the current token valid.
func (s *Store) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if s.Token() == "" {
		return ErrNoSession
	}
	if err := CheckPassword(newPassword, s.account()); err != nil {
		return err
	}
	body := map[string]string{"old_password": oldPassword, "new_password": newPassword}
	_, err := s.api.Call(ctx, http.MethodPut, "auth/password", nil, body, nil)
	return err
}

// account is the login name of the current identity, empty when the profile
// is not loaded.
func (s *Store) account() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.Username
}

// CheckInitialized asks the panel whether an admin account exists yet.
func (s *Store) CheckInitialized(ctx context.Context) (bool, error) {
	var out struct {
		Initialized bool `json:"initialized"`
	}
	if _, err := s.api.Call(ctx, http.MethodGet, "auth/check", nil, nil, &out); err != nil {
		return false, err
	}
	return out.Initialized, nil
}

// InitAdmin creates the first admin account on a fresh panel. It does not
// log in; call Login afterwards.
func (s *Store) InitAdmin(ctx context.Context, account, password string) error {
	if err := CheckPassword(password, account); err != nil {
		return err
	}
	body := map[string]string{"email": account, "username": account, "password": password}
	_, err := s.api.Call(ctx, http.MethodPost, "auth/init", nil, body, nil)
	return err
}

func (s *Store) handleUnauthorized(e *transport.Error) {
	s.events.Publish(events.Event{
		Type:   events.EventUnauthorized,
		Source: "transport",
		Data: events.UnauthorizedData{
			Method:    e.Method,
			Path:      e.Path,
			RequestID: e.RequestID,
		},
	})
	if current := tokenFingerprint(s.Token()); e.TokenID != "" && current != "" && e.TokenID != current {
		// The request carried a token this session has already replaced.
		s.logger.Debug("ignoring 401 for a previous token", "method", e.Method, "path", e.Path, "token", e.TokenID)
		return
	}
	s.ForceLogout("unauthorized: " + e.Method + " " + e.Path)
}

func (s *Store) emit(t events.EventType, snap Snapshot, reason string) {
	data := events.SessionData{
		State:      snap.State().String(),
		Reason:     reason,
		Generation: snap.Generation,
	}
	if snap.Identity != nil {
		data.Email = snap.Identity.Email
		data.Role = snap.Identity.Role.String()
	}
	s.events.EmitSession(t, s.clock.Now(), data)
}

func (s *Store) checkInvariant(snap Snapshot) {
	if !snap.Valid() {
		s.logger.Error("session invariant violated: identity without token", "generation", snap.Generation)
	}
}
