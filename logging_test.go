package promise

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN(42)", LogLevel(42).String())
}

func TestNoOpLogger(t *testing.T) {
	l := NewNoOpLogger()
	assert.False(t, l.IsEnabled(LevelError))
	l.Log(LogEntry{Level: LevelError, Message: "discarded"})
}

func TestWriterLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelDebug, &buf)

	l.Log(LogEntry{
		Level:    LevelError,
		Category: "wait",
		LoopID:   3,
		Context:  map[string]any{"attempt": 2},
		Message:  "wait failed",
		Err:      errors.New("boom"),
	})

	out := buf.String()
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "wait failed")
	assert.Contains(t, out, "loop=3")
	assert.Contains(t, out, "attempt=2")
	assert.Contains(t, out, "err=boom")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestWriterLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelWarn, &buf)

	assert.False(t, l.IsEnabled(LevelDebug))
	assert.False(t, l.IsEnabled(LevelInfo))
	assert.True(t, l.IsEnabled(LevelWarn))
	assert.True(t, l.IsEnabled(LevelError))

	l.Log(LogEntry{Level: LevelInfo, Message: "filtered"})
	assert.Empty(t, buf.String())

	l.SetLevel(LevelDebug)
	l.Log(LogEntry{Level: LevelInfo, Message: "visible"})
	assert.Contains(t, buf.String(), "visible")
}

func TestWriterLogger_ZeroTimestampFilled(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelDebug, &buf)

	l.Log(LogEntry{Level: LevelInfo, Category: "wake", Message: "m"})
	require.NotEmpty(t, buf.String())

	// The timestamp slot is filled in rather than left at the zero value.
	assert.NotContains(t, buf.String(), time.Time{}.Format("15:04:05.000"))
}

func TestSetStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	SetStructuredLogger(NewWriterLogger(LevelDebug, &buf))
	defer SetStructuredLogger(nil)

	logDebug(nil, "wake", "global sink", 7, nil)
	assert.Contains(t, buf.String(), "global sink")
	assert.Contains(t, buf.String(), "loop=7")
}

func TestLoopLogger_WaitEmitsDebug(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewEventLoop(WithLogger(NewWriterLogger(LevelDebug, &buf)))
	require.NoError(t, err)
	defer l.Close()

	_, err = Wait(l, Resolve(1))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "entering wait")
	assert.Contains(t, out, "wait satisfied")
}

// promiseLogEvent adapts the structured logging surface onto logiface for
// integration tests; fields captured through the generic AddField fallback.
type promiseLogEvent struct {
	logiface.UnimplementedEvent
	level  logiface.Level
	fields map[string]any
}

func (e *promiseLogEvent) Level() logiface.Level { return e.level }

func (e *promiseLogEvent) AddField(key string, val any) { e.fields[key] = val }

type promiseLogEventFactory struct{}

func (promiseLogEventFactory) NewEvent(level logiface.Level) *promiseLogEvent {
	return &promiseLogEvent{level: level, fields: make(map[string]any)}
}

type promiseLogEventWriter struct {
	events []*promiseLogEvent
}

func (w *promiseLogEventWriter) Write(event *promiseLogEvent) error {
	w.events = append(w.events, event)
	return nil
}

// logifaceLogger bridges the package's Logger interface to a logiface
// logger instance.
type logifaceLogger struct {
	logger *logiface.Logger[logiface.Event]
	min    LogLevel
}

func (a *logifaceLogger) IsEnabled(level LogLevel) bool { return level >= a.min }

func (a *logifaceLogger) Log(entry LogEntry) {
	b := a.logger.Build(logifaceLevel(entry.Level)).
		Str("category", entry.Category)
	if entry.LoopID != 0 {
		b = b.Int("loop", int(entry.LoopID))
	}
	for k, v := range entry.Context {
		b = b.Interface(k, v)
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}

func logifaceLevel(l LogLevel) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	default:
		return logiface.LevelError
	}
}

// TestLogifaceIntegration wires a loop's logger through logiface and checks
// that drain activity reaches the underlying writer.
func TestLogifaceIntegration(t *testing.T) {
	writer := &promiseLogEventWriter{}
	typed := logiface.New[*promiseLogEvent](
		logiface.WithEventFactory[*promiseLogEvent](promiseLogEventFactory{}),
		logiface.WithWriter[*promiseLogEvent](writer),
		logiface.WithLevel[*promiseLogEvent](logiface.LevelDebug),
	)

	l, err := NewEventLoop(WithLogger(&logifaceLogger{
		logger: typed.Logger(),
		min:    LevelDebug,
	}))
	require.NoError(t, err)
	defer l.Close()

	v, err := Wait(l, Resolve(5))
	require.NoError(t, err)
	require.Equal(t, 5, v)

	require.NotEmpty(t, writer.events)
	found := false
	for _, e := range writer.events {
		if e.fields["category"] == "wait" {
			found = true
			assert.Equal(t, logiface.LevelDebug, e.level)
		}
	}
	assert.True(t, found, "expected a wait-category event")
}
