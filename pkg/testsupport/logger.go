package testsupport

import (
	"context"
	"sync"

	"github.com/goliatone/go-storefront/pkg/interfaces"
)

// Entry is one recorded log call.
type Entry struct {
	Level string
	Msg   string
	Args  []any
}

// RecordingLogger captures log calls for assertions. Child loggers created
// with WithFields or WithContext record into the same list.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []Entry
}

var (
	_ interfaces.Logger       = (*RecordingLogger)(nil)
	_ interfaces.FieldsLogger = (*RecordingLogger)(nil)
)

func (r *RecordingLogger) Trace(msg string, args ...any) { r.record("trace", msg, args) }
func (r *RecordingLogger) Debug(msg string, args ...any) { r.record("debug", msg, args) }
func (r *RecordingLogger) Info(msg string, args ...any)  { r.record("info", msg, args) }
func (r *RecordingLogger) Warn(msg string, args ...any)  { r.record("warn", msg, args) }
func (r *RecordingLogger) Error(msg string, args ...any) { r.record("error", msg, args) }
func (r *RecordingLogger) Fatal(msg string, args ...any) { r.record("fatal", msg, args) }

func (r *RecordingLogger) WithFields(map[string]any) interfaces.Logger   { return r }
func (r *RecordingLogger) WithContext(context.Context) interfaces.Logger { return r }

// Entries returns a copy of the recorded calls.
func (r *RecordingLogger) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Count returns how many calls were recorded at level.
func (r *RecordingLogger) Count(level string) int {
	n := 0
	for _, entry := range r.Entries() {
		if entry.Level == level {
			n++
		}
	}
	return n
}

// GetLogger lets a RecordingLogger act as its own provider.
func (r *RecordingLogger) GetLogger(string) interfaces.Logger { return r }

func (r *RecordingLogger) record(level, msg string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Args: append([]any(nil), args...)})
}
