// Package eventlog carries the workflow's user-visible log stream.
//
// Operational key-value logging stays on slog; the events here are the
// ordered, append-only sequence a CLI prints, a GUI displays live, and
// the test harness asserts on.
package eventlog

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Severity of a log event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one line of the workflow log.
type Event struct {
	Time     time.Time
	Severity Severity
	Message  string
}

// TimestampFormat matches the log line format of the persistent log.
const TimestampFormat = "2006-01-02 15:04:05"

// String renders the event the way the log file and console show it.
func (e Event) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format(TimestampFormat), e.Message)
}

// Sink consumes events one at a time. Implementations must not assume
// anything beyond the single append operation.
type Sink interface {
	Append(Event)
}

// Recorder accumulates the run's ordered event sequence and fans each
// event out to the attached sinks. Scoped to one workflow run.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	sinks  []Sink
	now    func() time.Time
}

// NewRecorder creates a recorder fanning out to the given sinks.
func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks, now: time.Now}
}

// WithClock overrides the timestamp source, for tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

func (r *Recorder) append(sev Severity, format string, args ...any) {
	ev := Event{Time: r.now(), Severity: sev, Message: fmt.Sprintf(format, args...)}

	r.mu.Lock()
	r.events = append(r.events, ev)
	sinks := r.sinks
	r.mu.Unlock()

	for _, s := range sinks {
		s.Append(ev)
	}
}

// Infof records an informational event.
func (r *Recorder) Infof(format string, args ...any) { r.append(SeverityInfo, format, args...) }

// Warnf records a warning event.
func (r *Recorder) Warnf(format string, args ...any) { r.append(SeverityWarning, format, args...) }

// Errorf records an error event.
func (r *Recorder) Errorf(format string, args ...any) { r.append(SeverityError, format, args...) }

// Events returns a copy of the ordered event sequence.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ContainsFold reports whether any event message contains the phrase,
// case-insensitively.
func (r *Recorder) ContainsFold(phrase string) bool {
	want := strings.ToLower(phrase)
	for _, ev := range r.Events() {
		if strings.Contains(strings.ToLower(ev.Message), want) {
			return true
		}
	}
	return false
}

// Render returns the whole log as newline-joined formatted lines.
func (r *Recorder) Render() string {
	var b strings.Builder
	for _, ev := range r.Events() {
		b.WriteString(ev.String())
		b.WriteByte('\n')
	}
	return b.String()
}
