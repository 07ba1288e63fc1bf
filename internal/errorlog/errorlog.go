// =============================================================================
// AXIS-Z Resolver - Error/Diagnostic Log
// =============================================================================
//
// The log collects one Entry per resolution failure reported by a caller.
// Every entry is kept for the lifetime of the Log. Console emission, on the
// other hand, happens only for the first entry of each (context, parameter)
// pair: a column missing from 400 rows produces 400 entries and one line on
// the console.
//
// A Log is an ordinary value created with New. There is no package-level
// instance, so every pipeline run (and every test) owns its own.
//
// EXPORT FORMAT (one line per entry):
//   [2025-01-31T10:00:00.000Z] | CTX: mapper | REF: V-01 | PARAM: floor | MSG: ...
//
// =============================================================================

package errorlog

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/axisz-resolver/pkg/utils"
)

// TimestampLayout is the ISO-8601 layout used for entries and file names.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Entry is one recorded resolution failure.
type Entry struct {
	Timestamp   time.Time `json:"timestamp"`
	Context     string    `json:"context"`
	ReferenceID string    `json:"referenceId"`
	Parameter   string    `json:"parameter"`
	Message     string    `json:"message"`
}

// Line renders the entry in export format.
func (e Entry) Line() string {
	return fmt.Sprintf("[%s] | CTX: %s | REF: %s | PARAM: %s | MSG: %s",
		e.Timestamp.UTC().Format(TimestampLayout), e.Context, e.ReferenceID, e.Parameter, e.Message)
}

// pair identifies the console emission slot of an entry.
type pair struct {
	context   string
	parameter string
}

// Log is an append-only, concurrency-safe error log.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	seen    map[pair]struct{}
	emitted int

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithLogger sets the console logger. Without it nothing is emitted, but
// entries are still recorded.
func WithLogger(l *slog.Logger) Option {
	return func(lg *Log) { lg.logger = l }
}

// WithClock replaces time.Now, for reproducible timestamps.
func WithClock(now func() time.Time) Option {
	return func(lg *Log) { lg.now = now }
}

// New creates an empty log.
func New(opts ...Option) *Log {
	lg := &Log{
		seen: make(map[pair]struct{}),
		now:  time.Now,
	}
	for _, o := range opts {
		o(lg)
	}
	return lg
}

// Record appends an entry and reports whether it was emitted to the console,
// which happens only the first time its (context, parameter) pair is seen.
func (l *Log) Record(context, referenceID, parameter, message string) bool {
	l.mu.Lock()
	e := Entry{
		Timestamp:   l.now(),
		Context:     context,
		ReferenceID: referenceID,
		Parameter:   parameter,
		Message:     message,
	}
	l.entries = append(l.entries, e)

	key := pair{context: context, parameter: parameter}
	if _, dup := l.seen[key]; dup {
		l.mu.Unlock()
		return false
	}
	l.seen[key] = struct{}{}
	l.emitted++
	logger := l.logger
	l.mu.Unlock()

	if logger != nil {
		logger.Error(fmt.Sprintf("[%s] [%s] Error en %s: %s",
			e.Timestamp.UTC().Format(TimestampLayout), context, referenceID, message),
			"context", context,
			"parameter", parameter,
		)
	}
	return true
}

// All returns a copy of every entry in recording order.
func (l *Log) All() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Emitted returns how many entries reached the console.
func (l *Log) Emitted() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.emitted
}

// Export renders every entry, one per line.
func (l *Log) Export() string {
	entries := l.All()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Line()
	}
	return strings.Join(lines, "\n")
}

// WriteFile writes the export of project to dir, named after the project
// and the current time of the log clock.
//
// RETURNS:
//   - The path to the written file.
//   - An error if writing fails.
func (l *Log) WriteFile(dir, project string) (string, error) {
	name := utils.SanitizeFileName(project + "_" + FileName(l.now()))
	return utils.WriteTextFile(dir, name, l.Export()+"\n")
}

// FileName returns the download name of an export produced at t.
func FileName(t time.Time) string {
	return "log_errores_" + t.UTC().Format(TimestampLayout) + ".txt"
}
