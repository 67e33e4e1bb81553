// Package transport is the single chokepoint for calls to the panel API.
//
// Every request carries the current session token as a bearer credential.
// Every response is unwrapped from the {code, msg, data} envelope, and every
// failure is normalized into *Error and surfaced on the notification channel.
// A 401 from any endpoint is reported to the OnUnauthorized hooks; the
// transport itself holds no session state and never navigates.
package transport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/y-ui/yuictl/internal/brand"
	"github.com/y-ui/yuictl/internal/logging"
	"github.com/y-ui/yuictl/internal/metrics"
	"github.com/y-ui/yuictl/internal/notification"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token calls f().
func (f TokenFunc) Token() string { return f() }

// UnauthorizedHook is called for every 401 response.
type UnauthorizedHook func(*Error)

// Config holds connection settings.
type Config struct {
	Server      string // panel origin, e.g. https://panel.example.com:2053
	BasePath    string // versioned API prefix, e.g. /api/v1
	Timeout     time.Duration
	Insecure    bool   // skip CA verification
	Fingerprint string // SHA-256 hex of the expected leaf certificate, colons allowed
	Language    string // sent as Accept-Language when set
}

// Client is the HTTP client for the panel API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	notifier   notification.Notifier
	logger     *logging.Logger
	metrics    *metrics.Registry
	userAgent  string
	language   string
	requestID  func() string

	expectedFingerprint string

	fpMu            sync.RWMutex
	seenFingerprint string

	hookMu   sync.RWMutex
	hooks    map[int]UnauthorizedHook
	nextHook int
}

// Option configures the Client.
type Option func(*Client)

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithNotifier sets the user-facing notification channel.
func WithNotifier(n notification.Notifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// WithHTTPClient replaces the underlying HTTP client (its Timeout is kept).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithOnUnauthorized registers a 401 hook at construction time.
func WithOnUnauthorized(h UnauthorizedHook) Option {
	return func(c *Client) {
		c.addHook(h)
	}
}

// WithRequestIDs overrides the request ID generator.
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) {
		c.requestID = gen
	}
}

// New creates a Client for the panel described by cfg.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BasePath == "" {
		cfg.BasePath = brand.APIBasePath
	}

	c := &Client{
		baseURL:             strings.TrimRight(cfg.Server, "/") + "/" + strings.Trim(cfg.BasePath, "/"),
		tokens:              TokenFunc(func() string { return "" }),
		notifier:            notification.Discard,
		userAgent:           brand.UserAgent(brand.Version),
		language:            cfg.Language,
		requestID:           func() string { return uuid.NewString() },
		expectedFingerprint: NormalizeFingerprint(cfg.Fingerprint),
		hooks:               make(map[int]UnauthorizedHook),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logging.WithComponent("transport")
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: c.newTransport(cfg),
		}
	}

	return c
}

// NormalizeFingerprint lowercases a hex fingerprint and drops colon
// separators so it compares equal to SeenFingerprint.
func NormalizeFingerprint(fp string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(fp), ":", ""))
}

// TokenID identifies a bearer token without revealing it.
func TokenID(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

func (c *Client) newTransport(cfg Config) *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.Insecure && c.expectedFingerprint == "" {
		return tr
	}

	// A pinned fingerprint replaces CA verification; self-signed panel
	// certificates are the common case.
	tr.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return nil
			}
			hash := sha256.Sum256(rawCerts[0])
			fingerprint := hex.EncodeToString(hash[:])

			c.fpMu.Lock()
			c.seenFingerprint = fingerprint
			c.fpMu.Unlock()

			if c.expectedFingerprint != "" && c.expectedFingerprint != fingerprint {
				return fmt.Errorf("certificate fingerprint mismatch: expected %s, got %s", c.expectedFingerprint, fingerprint)
			}
			return nil
		},
	}
	return tr
}

// SeenFingerprint returns the leaf certificate fingerprint of the last TLS
// handshake in lowercase hex. It is empty until a pinned or insecure
// connection has completed a handshake.
func (c *Client) SeenFingerprint() string {
	c.fpMu.RLock()
	defer c.fpMu.RUnlock()
	return c.seenFingerprint
}

// BaseURL returns the API root all paths are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnUnauthorized registers h to be called on every 401 response. The
// returned function unregisters it.
func (c *Client) OnUnauthorized(h UnauthorizedHook) (unregister func()) {
	id := c.addHook(h)
	return func() {
		c.hookMu.Lock()
		defer c.hookMu.Unlock()
		delete(c.hooks, id)
	}
}

func (c *Client) addHook(h UnauthorizedHook) int {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	if c.hooks == nil {
		c.hooks = make(map[int]UnauthorizedHook)
	}
	id := c.nextHook
	c.nextHook++
	c.hooks[id] = h
	return id
}

func (c *Client) fireUnauthorized(e *Error) {
	c.hookMu.RLock()
	hooks := make([]UnauthorizedHook, 0, len(c.hooks))
	for _, h := range c.hooks {
		hooks = append(hooks, h)
	}
	c.hookMu.RUnlock()

	for _, h := range hooks {
		h(e)
	}
}

// Call performs a request and decodes the envelope data into result (which
// may be nil). It returns the envelope message on success. Any failure
// (network, HTTP status, non-zero code, undecodable data) is returned as
// *Error.
func (c *Client) Call(ctx context.Context, method, path string, query url.Values, body, result any) (string, error) {
	env, err := c.do(ctx, method, path, query, body, result)
	if err != nil {
		return "", err
	}
	return env.Msg, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) (*Envelope, error) {
	path = strings.TrimLeft(path, "/")
	reqID := c.requestID()
	token := c.tokens.Token()

	fail := func(e *Error) (*Envelope, error) {
		e.Method, e.Path, e.RequestID, e.TokenID = method, path, reqID, TokenID(token)
		return nil, c.fail(e)
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			// Programming error: nothing was sent, so nothing is surfaced.
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	target := c.baseURL + "/" + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", reqID)
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("request", "method", method, "path", path, "request_id", reqID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, path, metrics.OutcomeNetwork, start)
		return fail(&Error{Kind: KindNetwork, Message: networkMessage(err), Err: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.observe(method, path, metrics.OutcomeNetwork, start)
		return fail(&Error{Kind: KindNetwork, Status: resp.StatusCode, Message: networkMessage(err), Err: err})
	}

	c.logger.Debug("response", "method", method, "path", path, "status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond), "request_id", reqID)

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := &Error{Status: resp.StatusCode}
		if decodeErr == nil {
			e.Code = env.Code
			e.Message = env.Msg
		}
		if resp.StatusCode == http.StatusUnauthorized {
			e.Kind = KindUnauthorized
			if e.Message == "" {
				e.Message = "session expired"
			}
			c.observe(method, path, metrics.OutcomeUnauthorized, start)
			return fail(e)
		}
		e.Kind = KindHTTP
		if e.Message == "" {
			e.Message = fmt.Sprintf("request failed with status code %d", resp.StatusCode)
		}
		c.observe(method, path, metrics.OutcomeHTTP, start)
		return fail(e)
	}

	if decodeErr != nil {
		c.observe(method, path, metrics.OutcomeProtocol, start)
		return fail(&Error{Kind: KindProtocol, Status: resp.StatusCode, Message: "invalid response from server", Err: decodeErr})
	}

	if !env.OK() {
		msg := env.Msg
		if msg == "" {
			msg = "request failed"
		}
		c.observe(method, path, metrics.OutcomeDomain, start)
		return fail(&Error{Kind: KindDomain, Status: resp.StatusCode, Code: env.Code, Message: msg})
	}

	if err := env.Decode(result); err != nil {
		c.observe(method, path, metrics.OutcomeProtocol, start)
		return fail(&Error{Kind: KindProtocol, Status: resp.StatusCode, Message: "invalid response from server", Err: err})
	}

	c.observe(method, path, metrics.OutcomeOK, start)
	return &env, nil
}

// fail applies the failure side effects and returns e.
func (c *Client) fail(e *Error) error {
	if e.Kind == KindUnauthorized {
		c.logger.Warn("session rejected by panel", "method", e.Method, "path", e.Path, "request_id", e.RequestID)
		c.fireUnauthorized(e)
		return e
	}

	c.logger.Info("request failed", "kind", e.Kind.String(), "method", e.Method, "path", e.Path,
		"status", e.Status, "code", e.Code, "msg", e.Message, "request_id", e.RequestID)

	if errors.Is(e.Err, context.Canceled) {
		return e
	}
	c.notifier.Notify(notification.Notification{Message: e.Message, Level: notification.LevelError})
	return e
}

func (c *Client) observe(method, path, outcome string, start time.Time) {
	c.metrics.ObserveRequest(method, path, outcome, time.Since(start))
}

func networkMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		err = uerr.Err
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackMessage
}
