package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Panel error codes, matching the y-ui backend.
const (
	CodeLoginFailed    = 1001
	CodeProfileFailed  = 1002
	CodePasswordFailed = 1003
	CodeInitFailed     = 1004
)

// PanelUser is an account known to the fake panel.
type PanelUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	Nickname string `json:"nickname"`
	Status   int    `json:"status"`

	hash []byte
}

// Request is a request the fake panel received.
type Request struct {
	Method string
	Path   string // relative to /api/v1, e.g. "auth/login"
	Query  string
	Auth   string
	Body   []byte
}

type failure struct {
	status int
	code   int
	msg    string
}

type claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Panel is an in-process y-ui panel: JWT login, bcrypt passwords, role
// checks and canned resource responses. Every response uses the
// {code, msg, data} envelope.
type Panel struct {
	Server *httptest.Server

	mu       sync.Mutex
	secret   []byte
	ttl      time.Duration
	users    map[string]*PanelUser
	nextID   uint
	revoked  map[string]bool
	fixtures map[string]any
	failures map[string]failure
	requests []Request
}

// NewPanel starts a fake panel that is shut down when the test ends.
func NewPanel(t testing.TB) *Panel {
	t.Helper()
	p := &Panel{
		secret:   []byte("test-secret"),
		ttl:      24 * time.Hour,
		users:    make(map[string]*PanelUser),
		nextID:   1,
		revoked:  make(map[string]bool),
		fixtures: make(map[string]any),
		failures: make(map[string]failure),
	}
	p.Server = httptest.NewServer(p.router())
	t.Cleanup(p.Server.Close)
	return p
}

// URL is the panel origin.
func (p *Panel) URL() string {
	return p.Server.URL
}

// AddUser creates an account. A bcrypt failure aborts the test binary.
func (p *Panel) AddUser(username, password, role string) *PanelUser {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("bcrypt: %v", err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u := &PanelUser{
		ID:       p.nextID,
		Username: username,
		Role:     role,
		Nickname: username,
		Status:   1,
		hash:     hash,
	}
	if strings.Contains(username, "@") {
		u.Email = username
	}
	p.nextID++
	p.users[username] = u
	return u
}

// DisableUser makes every token for the account fail with 401.
func (p *Panel) DisableUser(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.users[username]; ok {
		u.Status = 0
	}
}

// RevokeAll invalidates every token issued so far.
func (p *Panel) RevokeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secret = []byte(string(p.secret) + "-rotated")
}

// Token mints a valid token for an existing account.
func (p *Panel) Token(username string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.users[username]
	if u == nil {
		return ""
	}
	tok, _ := p.signLocked(u)
	return tok
}

// Respond registers the data returned for method and relative path.
func (p *Panel) Respond(method, path string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fixtures[method+" "+strings.Trim(path, "/")] = data
}

// Fail makes method and path answer with the given status and envelope
// until ClearFailures is called. A code of 0 with a non-2xx status sends a
// body that is not an envelope.
func (p *Panel) Fail(method, path string, status, code int, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[method+" "+strings.Trim(path, "/")] = failure{status: status, code: code, msg: msg}
}

// ClearFailures removes every injected failure.
func (p *Panel) ClearFailures() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = make(map[string]failure)
}

// Requests returns every request received so far.
func (p *Panel) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Hits counts requests to method and relative path.
func (p *Panel) Hits(method, path string) int {
	n := 0
	for _, r := range p.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the most recent request to method and path.
func (p *Panel) LastRequest(method, path string) (Request, bool) {
	reqs := p.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

func (p *Panel) router() http.Handler {
	r := chi.NewRouter()
	r.Use(p.record)
	r.Use(p.inject)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", p.handleLogin)
		r.Get("/auth/check", p.handleCheck)
		r.Post("/auth/init", p.handleInit)

		r.Group(func(r chi.Router) {
			r.Use(p.requireAuth)

			r.Post("/auth/logout", p.handleLogout)
			r.Get("/auth/profile", p.handleProfile)
			r.Put("/auth/password", p.handlePassword)

			r.Group(func(r chi.Router) {
				r.Use(p.requireAdmin)
				r.HandleFunc("/users", p.handleFixture)
				r.HandleFunc("/users/*", p.handleFixture)
				r.HandleFunc("/system/config", p.handleFixture)
				r.HandleFunc("/system/restart", p.handleFixture)
			})

			r.HandleFunc("/*", p.handleFixture)
		})
	})
	return r
}

func relPath(r *http.Request) string {
	return strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1"), "/")
}

func (p *Panel) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		p.mu.Lock()
		p.requests = append(p.requests, Request{
			Method: r.Method,
			Path:   relPath(r),
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		p.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (p *Panel) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		f, ok := p.failures[r.Method+" "+relPath(r)]
		p.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if f.code == 0 && f.status >= 300 {
			http.Error(w, f.msg, f.status)
			return
		}
		writeEnvelope(w, f.status, f.code, f.msg, nil)
	})
}

func writeEnvelope(w http.ResponseWriter, status, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"code": code, "msg": msg}
	if data != nil {
		body["data"] = data
	}
	//nolint:errcheck
	json.NewEncoder(w).Encode(body)
}

func (p *Panel) signLocked(u *PanelUser) (string, time.Time) {
	exp := time.Now().Add(p.ttl)
	c := claims{
		UserID: u.ID,
		Email:  u.Username,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "y-ui",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
	if err != nil {
		panic(fmt.Sprintf("jwt: %v", err))
	}
	return signed, exp
}

func (p *Panel) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeEnvelope(w, http.StatusBadRequest, 400, "invalid parameters", nil)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[req.Username]
	switch {
	case !ok:
		writeEnvelope(w, http.StatusOK, CodeLoginFailed, "user not found", nil)
		return
	case u.Status != 1:
		writeEnvelope(w, http.StatusOK, CodeLoginFailed, "account disabled", nil)
		return
	case bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) != nil:
		writeEnvelope(w, http.StatusOK, CodeLoginFailed, "wrong password", nil)
		return
	}

	token, exp := p.signLocked(u)
	writeEnvelope(w, http.StatusOK, 0, "ok", map[string]any{
		"token":      token,
		"expires_at": exp,
		"user":       u,
	})
}

func (p *Panel) handleCheck(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	n := len(p.users)
	p.mu.Unlock()
	writeEnvelope(w, http.StatusOK, 0, "ok", map[string]bool{"initialized": n > 0})
}

func (p *Panel) handleInit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || len(req.Password) < 6 {
		writeEnvelope(w, http.StatusBadRequest, 400, "invalid parameters", nil)
		return
	}

	p.mu.Lock()
	n := len(p.users)
	p.mu.Unlock()
	if n > 0 {
		writeEnvelope(w, http.StatusOK, CodeInitFailed, "admin already exists", nil)
		return
	}
	p.AddUser(req.Email, req.Password, "admin")
	writeEnvelope(w, http.StatusOK, 0, "admin created", nil)
}

type ctxUserKey struct{}

func (p *Panel) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if header == "" || !ok {
			writeEnvelope(w, http.StatusUnauthorized, 401, "missing credentials", nil)
			return
		}

		p.mu.Lock()
		secret := p.secret
		revoked := p.revoked[raw]
		p.mu.Unlock()

		if revoked {
			writeEnvelope(w, http.StatusUnauthorized, 401, "token revoked", nil)
			return
		}

		var c claims
		_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeEnvelope(w, http.StatusUnauthorized, 401, "invalid token", nil)
			return
		}

		p.mu.Lock()
		var user *PanelUser
		for _, u := range p.users {
			if u.ID == c.UserID {
				user = u
			}
		}
		p.mu.Unlock()

		if user == nil || user.Status != 1 {
			writeEnvelope(w, http.StatusUnauthorized, 401, "account disabled", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r, user, raw)))
	})
}

func (p *Panel) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, _ := userFrom(r); u == nil || u.Role != "admin" {
			writeEnvelope(w, http.StatusForbidden, 403, "permission denied", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p *Panel) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, token := userFrom(r)
	p.mu.Lock()
	p.revoked[token] = true
	p.mu.Unlock()
	writeEnvelope(w, http.StatusOK, 0, "logged out", nil)
}

func (p *Panel) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r)
	p.mu.Lock()
	defer p.mu.Unlock()
	writeEnvelope(w, http.StatusOK, 0, "ok", u)
}

func (p *Panel) handlePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.NewPassword) < 6 {
		writeEnvelope(w, http.StatusBadRequest, 400, "invalid parameters", nil)
		return
	}

	u, _ := userFrom(r)
	p.mu.Lock()
	defer p.mu.Unlock()
	if bcrypt.CompareHashAndPassword(u.hash, []byte(req.OldPassword)) != nil {
		writeEnvelope(w, http.StatusOK, CodePasswordFailed, "old password is wrong", nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, 500, err.Error(), nil)
		return
	}
	u.hash = hash
	writeEnvelope(w, http.StatusOK, 0, "password changed", nil)
}

func (p *Panel) handleFixture(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	data, ok := p.fixtures[r.Method+" "+relPath(r)]
	p.mu.Unlock()

	if ok {
		writeEnvelope(w, http.StatusOK, 0, "ok", data)
		return
	}
	if r.Method == http.MethodGet {
		writeEnvelope(w, http.StatusNotFound, 404, "not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, 0, "ok", nil)
}
