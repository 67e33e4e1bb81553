package notification

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y-ui/yuictl/internal/clock"
	"github.com/y-ui/yuictl/internal/logging"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(clock.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), logging.Discard())
}

func TestDispatcher_FanOut(t *testing.T) {
	d := newTestDispatcher()

	var a, b []Notification
	d.AddSink(Sink{Name: "a", Notifier: NotifierFunc(func(n Notification) { a = append(a, n) })})
	d.AddSink(Sink{Name: "b", Notifier: NotifierFunc(func(n Notification) { b = append(b, n) })})

	d.Error("bad credentials")

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, "bad credentials", a[0].Message)
	assert.Equal(t, LevelError, a[0].Level)
	assert.Equal(t, 2025, a[0].Timestamp.Year(), "timestamp comes from the injected clock")
}

func TestDispatcher_LevelFiltering(t *testing.T) {
	d := newTestDispatcher()

	var got []Notification
	d.AddSink(Sink{Name: "errors", MinLevel: LevelWarning, Notifier: NotifierFunc(func(n Notification) { got = append(got, n) })})

	d.Success("saved")
	d.Notify(Notification{Message: "heads up", Level: LevelWarning})
	d.Error("boom")

	require.Len(t, got, 2)
	assert.Equal(t, "heads up", got[0].Message)
	assert.Equal(t, "boom", got[1].Message)
}

func TestDispatcher_StripsTerminalEscapes(t *testing.T) {
	d := newTestDispatcher()

	var got []Notification
	d.AddSink(Sink{Name: "a", Notifier: NotifierFunc(func(n Notification) { got = append(got, n) })})

	d.Notify(Notification{Title: "\x1b]0;owned\x07Panel", Message: "\x1b[2Jinvalid\r\ntoken", Level: LevelError})

	require.Len(t, got, 1)
	assert.Equal(t, "Panel", got[0].Title)
	assert.Equal(t, "invalidtoken", got[0].Message)
}

func TestDispatcher_DefaultLevel(t *testing.T) {
	d := newTestDispatcher()
	var got Notification
	d.AddSink(Sink{Name: "x", Notifier: NotifierFunc(func(n Notification) { got = n })})

	d.Notify(Notification{Message: "hello"})
	assert.Equal(t, LevelInfo, got.Level)
}

func TestDispatcher_RemoveSink(t *testing.T) {
	d := newTestDispatcher()
	count := 0
	d.AddSink(Sink{Name: "tmp", Notifier: NotifierFunc(func(Notification) { count++ })})
	d.RemoveSink("tmp")

	d.Error("ignored")
	assert.Zero(t, count)
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := WriterSink(&buf)

	sink.Notify(Notification{Message: "network error", Level: LevelError})
	sink.Notify(Notification{Title: "login", Message: "welcome", Level: LevelSuccess})

	assert.Equal(t, "error: network error\nsuccess: login: welcome\n", buf.String())
}

func TestChanSink_NonBlocking(t *testing.T) {
	ch := make(chan Notification, 1)
	sink := ChanSink(ch)

	sink.Notify(Notification{Message: "first"})
	sink.Notify(Notification{Message: "second"}) // dropped, must not block

	assert.Equal(t, "first", (<-ch).Message)
	assert.Len(t, ch, 0)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelInfo, Output: &buf})

	LogSink(logger).Notify(Notification{Message: "token expired", Level: LevelError})
	assert.Contains(t, buf.String(), "token expired")
}
