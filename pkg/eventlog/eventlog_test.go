package eventlog

import (
	"strings"
	"testing"
	"time"
)

type captureSink struct {
	events []Event
}

func (s *captureSink) Append(ev Event) { s.events = append(s.events, ev) }

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)
	}
}

func TestRecorder_OrderAndFanOut(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	r := NewRecorder(a, b).WithClock(fixedClock())

	r.Infof("first")
	r.Warnf("second %d", 2)
	r.Errorf("third")

	events := r.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	wantMessages := []string{"first", "second 2", "third"}
	wantSeverity := []Severity{SeverityInfo, SeverityWarning, SeverityError}
	for i, ev := range events {
		if ev.Message != wantMessages[i] {
			t.Errorf("event %d: expected message %q, got %q", i, wantMessages[i], ev.Message)
		}
		if ev.Severity != wantSeverity[i] {
			t.Errorf("event %d: expected severity %s, got %s", i, wantSeverity[i], ev.Severity)
		}
	}

	if len(a.events) != 3 || len(b.events) != 3 {
		t.Errorf("expected both sinks to receive 3 events, got %d and %d", len(a.events), len(b.events))
	}
}

func TestEvent_StringFormat(t *testing.T) {
	ev := Event{
		Time:     time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC),
		Severity: SeverityInfo,
		Message:  "Target distro: Ubuntu",
	}

	want := "[2024-03-01 12:30:45] Target distro: Ubuntu"
	if ev.String() != want {
		t.Errorf("expected %q, got %q", want, ev.String())
	}
}

func TestContainsFold(t *testing.T) {
	r := NewRecorder().WithClock(fixedClock())
	r.Infof("DiskPart compact simulation completed")

	if !r.ContainsFold("diskpart COMPACT simulation completed") {
		t.Error("expected case-insensitive phrase match")
	}
	if r.ContainsFold("no such phrase") {
		t.Error("unexpected phrase match")
	}
}

func TestRender(t *testing.T) {
	r := NewRecorder().WithClock(fixedClock())
	r.Infof("one")
	r.Infof("two")

	lines := strings.Split(strings.TrimRight(r.Render(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rendered lines, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[0], "one") || !strings.HasSuffix(lines[1], "two") {
		t.Errorf("rendered lines out of order: %v", lines)
	}
}
