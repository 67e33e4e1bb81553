package tui

import (
	"io"
	"os"

	"github.com/y-ui/yuictl/internal/logging"
)

// OpenDebugLog returns the logger the console should use while it owns the
// terminal. With an empty path everything is discarded; otherwise records
// are appended to path as JSON.
func OpenDebugLog(path string, level logging.Level) (*logging.Logger, io.Closer, error) {
	if path == "" {
		return logging.Discard(), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	l := logging.New(logging.Config{Level: level, Output: f, JSON: true})
	return l.WithComponent("tui"), f, nil
}
