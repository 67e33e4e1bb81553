// Package notification is the user-facing notification channel. Transport
// failures and session changes are surfaced here as short transient messages;
// the CLI prints them to stderr and the console shows them as toasts.
package notification

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/y-ui/yuictl/internal/clock"
	"github.com/y-ui/yuictl/internal/logging"
	"github.com/y-ui/yuictl/internal/validation"
)

// Level constants
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notification represents a notification event
type Notification struct {
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier accepts notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Sink is a destination with an optional minimum level.
type Sink struct {
	Name     string
	MinLevel string
	Notifier Notifier
}

// Dispatcher manages sinks and fans notifications out to them.
type Dispatcher struct {
	mu     sync.RWMutex
	sinks  []Sink
	clock  clock.Clock
	logger *logging.Logger
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(clk clock.Clock, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default().WithComponent("notification")
	}
	return &Dispatcher{
		clock:  clock.OrReal(clk),
		logger: logger,
	}
}

// AddSink registers a sink.
func (d *Dispatcher) AddSink(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
}

// RemoveSink unregisters every sink with the given name.
func (d *Dispatcher) RemoveSink(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.sinks[:0]
	for _, s := range d.sinks {
		if s.Name != name {
			kept = append(kept, s)
		}
	}
	d.sinks = kept
}

// Notify dispatches a notification to every sink whose level accepts it.
func (d *Dispatcher) Notify(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = d.clock.Now()
	}
	if n.Level == "" {
		n.Level = LevelInfo
	}
	// Messages may carry panel text; keep escapes off the terminal.
	n.Title = validation.SanitizeString(n.Title)
	n.Message = validation.SanitizeString(n.Message)

	d.mu.RLock()
	sinks := make([]Sink, len(d.sinks))
	copy(sinks, d.sinks)
	d.mu.RUnlock()

	for _, s := range sinks {
		if !shouldSend(n.Level, s.MinLevel) {
			continue
		}
		s.Notifier.Notify(n)
	}
}

// Error is a helper for error messages.
func (d *Dispatcher) Error(message string) {
	d.Notify(Notification{Message: message, Level: LevelError})
}

// Success is a helper for confirmation messages.
func (d *Dispatcher) Success(message string) {
	d.Notify(Notification{Message: message, Level: LevelSuccess})
}

// shouldSend checks if a message level meets the sink's minimum level
func shouldSend(msgLevel, sinkLevel string) bool {
	if sinkLevel == "" {
		return true
	}
	return rank(msgLevel) >= rank(sinkLevel)
}

func rank(level string) int {
	switch strings.ToLower(level) {
	case LevelInfo, LevelSuccess:
		return 1
	case LevelWarning:
		return 2
	case LevelError:
		return 3
	}
	return 0
}

// --- Sinks ---

// LogSink writes notifications to a logger.
func LogSink(logger *logging.Logger) Notifier {
	return NotifierFunc(func(n Notification) {
		switch n.Level {
		case LevelError:
			logger.Error(n.Message, "title", n.Title)
		case LevelWarning:
			logger.Warn(n.Message, "title", n.Title)
		default:
			logger.Info(n.Message, "title", n.Title)
		}
	})
}

// WriterSink prints one line per notification, e.g. "error: invalid password".
func WriterSink(w io.Writer) Notifier {
	var mu sync.Mutex
	return NotifierFunc(func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		if n.Title != "" {
			fmt.Fprintf(w, "%s: %s: %s\n", n.Level, n.Title, n.Message)
			return
		}
		fmt.Fprintf(w, "%s: %s\n", n.Level, n.Message)
	})
}

// ChanSink forwards notifications to ch without blocking; a full channel
// drops the notification.
func ChanSink(ch chan<- Notification) Notifier {
	return NotifierFunc(func(n Notification) {
		select {
		case ch <- n:
		default:
		}
	})
}

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Notification) {})
