package route

import (
	"errors"
	"fmt"
	"sync"

	"github.com/y-ui/yuictl/internal/logging"
	"github.com/y-ui/yuictl/internal/metrics"
)

// maxHops bounds redirect chains. The default table needs at most three
// (unmatched → dashboard → login).
const maxHops = 8

// ErrRedirectLoop is returned when redirects do not settle within maxHops.
var ErrRedirectLoop = errors.New("route: redirect loop")

// Change describes a completed navigation.
type Change struct {
	From string
	To   string
	// Decisions holds every guard verdict on the way, the last one allowing To.
	Decisions []Decision
}

// Redirected reports whether the user ended up somewhere other than requested.
func (c Change) Redirected() bool {
	return len(c.Decisions) > 1
}

// Navigator tracks the current view and history. Every navigation, including
// Back and Forward, is evaluated by the guard against a fresh principal.
type Navigator struct {
	guard     *Guard
	principal func() Principal
	logger    *logging.Logger
	metrics   *metrics.Registry

	mu        sync.Mutex
	history   []string
	pos       int
	listeners []func(Change)
}

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithLogger sets the navigator's logger.
func WithLogger(l *logging.Logger) NavigatorOption {
	return func(n *Navigator) { n.logger = l }
}

// WithMetrics records every guard decision.
func WithMetrics(r *metrics.Registry) NavigatorOption {
	return func(n *Navigator) { n.metrics = r }
}

// NewNavigator creates a navigator with empty history. principal is called
// once per navigation.
func NewNavigator(g *Guard, principal func() Principal, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		guard:     g,
		principal: principal,
		pos:       -1,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logging.WithComponent("route")
	}
	return n
}

// OnChange registers fn to run after every completed navigation.
func (n *Navigator) OnChange(fn func(Change)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// Current returns the current path, or "" before the first navigation.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pos < 0 {
		return ""
	}
	return n.history[n.pos]
}

// History returns a copy of the history and the index of the current entry.
func (n *Navigator) History() ([]string, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.history))
	copy(out, n.history)
	return out, n.pos
}

// Navigate resolves path through the guard and pushes the final destination,
// dropping any forward history. A redirected target is not remembered.
func (n *Navigator) Navigate(path string) (Change, error) {
	dest, decisions, err := n.resolve(path)
	if err != nil {
		return Change{}, err
	}

	n.mu.Lock()
	from := n.currentLocked()
	if from != dest {
		n.history = append(n.history[:n.pos+1], dest)
		n.pos++
	}
	n.mu.Unlock()

	return n.finish(from, dest, decisions), nil
}

// Back moves one entry back in history, re-evaluating the guard on it.
func (n *Navigator) Back() (Change, error) {
	return n.step(-1)
}

// Forward moves one entry forward in history.
func (n *Navigator) Forward() (Change, error) {
	return n.step(+1)
}

// CanBack reports whether there is an entry behind the current one.
func (n *Navigator) CanBack() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pos > 0
}

// CanForward reports whether there is an entry ahead of the current one.
func (n *Navigator) CanForward() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pos >= 0 && n.pos < len(n.history)-1
}

// Revalidate re-evaluates the current path, for use after the session
// changed underneath the view (for example a forced logout).
func (n *Navigator) Revalidate() (Change, error) {
	cur := n.Current()
	if cur == "" {
		return Change{}, nil
	}
	return n.replace(cur, cur)
}

func (n *Navigator) step(delta int) (Change, error) {
	n.mu.Lock()
	target := n.pos + delta
	if n.pos < 0 || target < 0 || target >= len(n.history) {
		n.mu.Unlock()
		return Change{}, fmt.Errorf("route: no history entry at offset %+d", delta)
	}
	from := n.history[n.pos]
	n.pos = target
	path := n.history[target]
	n.mu.Unlock()

	return n.replace(from, path)
}

// replace resolves path and overwrites the current history entry with the
// result.
func (n *Navigator) replace(from, path string) (Change, error) {
	dest, decisions, err := n.resolve(path)
	if err != nil {
		return Change{}, err
	}

	n.mu.Lock()
	n.history[n.pos] = dest
	n.mu.Unlock()

	return n.finish(from, dest, decisions), nil
}

// resolve follows redirects from path until the guard allows a destination.
func (n *Navigator) resolve(path string) (string, []Decision, error) {
	p := n.principal()
	var decisions []Decision

	for hop := 0; hop < maxHops; hop++ {
		d := n.guard.Decide(path, p)
		decisions = append(decisions, d)
		n.metrics.Decision(d.Outcome.String(), d.Reason)

		if d.Allowed() {
			return d.Path, decisions, nil
		}
		n.logger.Debug("navigation redirected", "from", d.Path, "to", d.Target, "reason", d.Reason)
		path = d.Target
	}

	n.logger.Error("redirect loop", "start", decisions[0].Path, "hops", maxHops)
	return "", decisions, ErrRedirectLoop
}

func (n *Navigator) finish(from, to string, decisions []Decision) Change {
	c := Change{From: from, To: to, Decisions: decisions}

	n.mu.Lock()
	listeners := make([]func(Change), len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(c)
	}
	return c
}

func (n *Navigator) currentLocked() string {
	if n.pos < 0 {
		return ""
	}
	return n.history[n.pos]
}
