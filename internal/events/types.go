// Package events provides the pub/sub event bus that carries session
// transitions from the session store to the console and CLI.
package events

import "time"

// EventType identifies the category of event.
type EventType string

// Event types.
const (
	// Session transitions
	EventLogin        EventType = "session.login"
	EventLogout       EventType = "session.logout"
	EventForcedLogout EventType = "session.forced_logout"
	EventProfile      EventType = "session.profile"

	// Transport saw a 401 on any call
	EventUnauthorized EventType = "transport.unauthorized"
)

// Event is the core message passed through the event bus.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // Component that emitted: "session", "transport"
	Data      any       `json:"data"`   // Type-specific payload
}

// SessionData is the payload for session.* events.
type SessionData struct {
	State      string `json:"state"` // anonymous, authenticated, privileged
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Generation uint64 `json:"generation"`
}

// UnauthorizedData is the payload for EventUnauthorized.
type UnauthorizedData struct {
	Method    string `json:"method"`
	Path      string `json:"path"`
	RequestID string `json:"request_id,omitempty"`
}
