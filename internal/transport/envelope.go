package transport

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wrapper every panel response uses. Code 0 is the only
// success signal, independent of the HTTP status.
type Envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OK reports whether the envelope signals success.
func (e *Envelope) OK() bool {
	return e.Code == 0
}

// HasData reports whether the envelope carries a non-null data field.
func (e *Envelope) HasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

// Decode unmarshals the data field into v. A nil v or an absent data field
// is a no-op.
func (e *Envelope) Decode(v any) error {
	if v == nil || !e.HasData() {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
