// Package testutil provides shared test fixtures: a fake y-ui panel and
// small helpers for contexts and request bodies.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

// Context returns a context that is cancelled when the test ends or after
// five seconds, whichever comes first.
func Context(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// DecodeBody unmarshals a recorded request body into a generic map.
func DecodeBody(t testing.TB, r Request) map[string]any {
	t.Helper()
	out := map[string]any{}
	if len(r.Body) == 0 {
		return out
	}
	if err := json.Unmarshal(r.Body, &out); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	return out
}

type panelCtx struct {
	user  *PanelUser
	token string
}

func withUser(r *http.Request, u *PanelUser, token string) context.Context {
	return context.WithValue(r.Context(), ctxUserKey{}, panelCtx{user: u, token: token})
}

func userFrom(r *http.Request) (*PanelUser, string) {
	v, _ := r.Context().Value(ctxUserKey{}).(panelCtx)
	return v.user, v.token
}
