package transport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y-ui/yuictl/internal/logging"
	"github.com/y-ui/yuictl/internal/metrics"
	"github.com/y-ui/yuictl/internal/notification"
)

type recorder struct {
	mu    sync.Mutex
	items []notification.Notification
}

func (r *recorder) Notify(n notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.items {
		out = append(out, n.Message)
	}
	return out
}

func writeEnvelope(w http.ResponseWriter, status, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"code": code, "msg": msg}
	if data != nil {
		body["data"] = data
	}
	_ = json.NewEncoder(w).Encode(body)
}

// get performs a GET without a result.
func get(ctx context.Context, c *Client, path string) error {
	_, err := c.Call(ctx, http.MethodGet, path, nil, nil, nil)
	return err
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *recorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	rec := &recorder{}
	opts = append([]Option{WithNotifier(rec), WithLogger(logging.Discard())}, opts...)
	return New(Config{Server: srv.URL, BasePath: "/api/v1", Timeout: 5 * time.Second}, opts...), rec
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotPath, gotReqID string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotReqID = r.Header.Get("X-Request-ID")
		writeEnvelope(w, http.StatusOK, 0, "success", nil)
	}, WithTokenSource(TokenFunc(func() string { return "abc" })))

	require.NoError(t, get(context.Background(), c, "auth/profile"))
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "/api/v1/auth/profile", gotPath)
	assert.NotEmpty(t, gotReqID)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var present bool
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["Authorization"]
		writeEnvelope(w, http.StatusOK, 0, "success", nil)
	})

	require.NoError(t, get(context.Background(), c, "auth/check"))
	assert.False(t, present, "no Authorization header without a token")
}

func TestClient_DecodesData(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		writeEnvelope(w, http.StatusOK, 0, "success", map[string]any{"total": 7})
	})

	var out struct {
		Total int `json:"total"`
	}
	msg, err := c.Call(context.Background(), http.MethodGet, "clients", url.Values{"page": {"2"}}, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "success", msg)
	assert.Equal(t, 7, out.Total)
	assert.Empty(t, rec.messages())
}

func TestClient_SendsJSONBody(t *testing.T) {
	var got map[string]string
	var contentType string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeEnvelope(w, http.StatusOK, 0, "success", nil)
	})

	_, err := c.Call(context.Background(), http.MethodPut, "auth/password", nil, map[string]string{"old_password": "a", "new_password": "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "b", got["new_password"])
}

func TestClient_DomainError(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 1001, "invalid username or password", nil)
	})

	_, err := c.Call(context.Background(), http.MethodPost, "auth/login", nil, map[string]string{"username": "a"}, nil)
	require.Error(t, err)
	assert.True(t, IsDomain(err))

	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, 1001, te.Code)
	assert.Equal(t, "invalid username or password", Message(err))
	assert.Equal(t, []string{"invalid username or password"}, rec.messages())
}

func TestClient_HTTPErrorUsesEnvelopeMessage(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusForbidden, 403, "admin required", nil)
	})

	err := get(context.Background(), c, "system/config")
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindHTTP, te.Kind)
	assert.Equal(t, http.StatusForbidden, te.Status)
	assert.Equal(t, []string{"admin required"}, rec.messages())
}

func TestClient_HTTPErrorWithoutEnvelope(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	err := get(context.Background(), c, "stats/summary")
	require.Error(t, err)
	assert.Equal(t, "request failed with status code 502", Message(err))
	assert.Equal(t, []string{"request failed with status code 502"}, rec.messages())
}

func TestClient_UnauthorizedFiresHooksWithoutNotification(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, 401, "token expired", nil)
	})

	var fired []string
	c.OnUnauthorized(func(e *Error) { fired = append(fired, "a:"+e.Path) })
	unregister := c.OnUnauthorized(func(e *Error) { fired = append(fired, "b:"+e.Path) })

	err := get(context.Background(), c, "clients")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.ElementsMatch(t, []string{"a:clients", "b:clients"}, fired)
	assert.Empty(t, rec.messages(), "401 is handled by the session, not surfaced as a toast")

	unregister()
	fired = nil
	_ = get(context.Background(), c, "inbounds")
	assert.Equal(t, []string{"a:inbounds"}, fired)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	rec := &recorder{}
	c := New(Config{Server: addr, Timeout: time.Second}, WithNotifier(rec), WithLogger(logging.Discard()))

	err := get(context.Background(), c, "auth/profile")
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	require.Len(t, rec.messages(), 1)
	assert.NotEmpty(t, rec.messages()[0])
}

func TestClient_CancelledContextNotNotified(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 0, "success", nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := get(ctx, c, "auth/profile")
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.messages())
}

func TestClient_InvalidEnvelope(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})

	err := get(context.Background(), c, "system/status")
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindProtocol, te.Kind)
	assert.Len(t, rec.messages(), 1)
}

func TestClient_Metrics(t *testing.T) {
	reg := metrics.New()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/clients/3" {
			writeEnvelope(w, http.StatusOK, 1, "not found", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, 0, "success", nil)
	}, WithMetrics(reg))

	require.NoError(t, get(context.Background(), c, "clients/1"))
	require.Error(t, get(context.Background(), c, "clients/3"))

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.APIRequests.WithLabelValues("GET", "clients/:id", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.APIRequests.WithLabelValues("GET", "clients/:id", metrics.OutcomeDomain)))
}

func TestClient_UndecodableDataIsProtocolError(t *testing.T) {
	reg := metrics.New()
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 0, "success", map[string]any{"total": "many"})
	}, WithMetrics(reg), WithRequestIDs(func() string { return "req-7" }))

	var out struct {
		Total int `json:"total"`
	}
	_, err := c.Call(context.Background(), http.MethodGet, "clients", nil, nil, &out)
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindProtocol, te.Kind)
	assert.Equal(t, "req-7", te.RequestID)
	assert.Equal(t, "clients", te.Path)
	assert.Len(t, rec.messages(), 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.APIRequests.WithLabelValues("GET", "clients", metrics.OutcomeProtocol)))
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.APIRequests.WithLabelValues("GET", "clients", metrics.OutcomeOK)))
}

func TestClient_RecordsTokenOnFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, 401, "token expired", nil)
	}, WithTokenSource(TokenFunc(func() string { return "abc" })))

	err := get(context.Background(), c, "clients")
	te, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, TokenID("abc"), te.TokenID)
	assert.Empty(t, TokenID(""))
}

// colonHex formats b as upper-case hex pairs joined by colons, the way
// browsers and openssl print certificate fingerprints.
func colonHex(b []byte) string {
	pairs := make([]string, len(b))
	for i, v := range b {
		pairs[i] = strings.ToUpper(hex.EncodeToString([]byte{v}))
	}
	return strings.Join(pairs, ":")
}

func TestClient_PinnedFingerprint(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 0, "success", nil)
	}))
	t.Cleanup(srv.Close)

	sum := sha256.Sum256(srv.Certificate().Raw)
	leaf := hex.EncodeToString(sum[:])

	newPinned := func(cfg Config) (*Client, *recorder) {
		cfg.Server, cfg.Timeout = srv.URL, 5*time.Second
		rec := &recorder{}
		return New(cfg, WithNotifier(rec), WithLogger(logging.Discard())), rec
	}

	t.Run("matching pin", func(t *testing.T) {
		c, rec := newPinned(Config{Fingerprint: colonHex(sum[:])})
		require.NoError(t, get(context.Background(), c, "auth/check"))
		assert.Equal(t, leaf, c.SeenFingerprint())
		assert.Empty(t, rec.messages())
	})

	t.Run("wrong pin", func(t *testing.T) {
		c, rec := newPinned(Config{Fingerprint: strings.Repeat("ab", 32)})
		err := get(context.Background(), c, "auth/check")
		require.Error(t, err)
		assert.True(t, IsNetwork(err))
		assert.Contains(t, Message(err), "fingerprint mismatch")
		assert.Len(t, rec.messages(), 1)
		assert.Equal(t, leaf, c.SeenFingerprint())
	})

	t.Run("insecure without pin", func(t *testing.T) {
		c, _ := newPinned(Config{Insecure: true})
		require.NoError(t, get(context.Background(), c, "auth/check"))
		assert.Equal(t, leaf, c.SeenFingerprint())
	})

	t.Run("verified by default", func(t *testing.T) {
		c, _ := newPinned(Config{})
		err := get(context.Background(), c, "auth/check")
		assert.True(t, IsNetwork(err))
		assert.Empty(t, c.SeenFingerprint())
	})
}

func TestNormalizeFingerprint(t *testing.T) {
	assert.Equal(t, "abcd01", NormalizeFingerprint(" AB:CD:01 "))
	assert.Equal(t, "abcd01", NormalizeFingerprint("abcd01"))
}

func TestClient_DefaultBasePath(t *testing.T) {
	c := New(Config{Server: "https://panel.example.com:2053/"})
	assert.Equal(t, "https://panel.example.com:2053/api/v1", c.BaseURL())
}

func TestErrorFormatting(t *testing.T) {
	e := &Error{Kind: KindDomain, Method: "POST", Path: "auth/login", Code: 1001, Message: "bad"}
	assert.Equal(t, "POST auth/login: bad (code 1001)", e.Error())

	e = &Error{Kind: KindHTTP, Method: "GET", Path: "clients", Status: 500, Message: "boom"}
	assert.Equal(t, "GET clients: boom (status 500)", e.Error())

	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "unauthorized", KindUnauthorized.String())
}
