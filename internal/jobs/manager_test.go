package jobs

import (
	"errors"
	"testing"

	"vid2mp3/internal/domain"
)

// TestManagerLifecycle verifies the idle -> converting -> done progression.
func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	if m.IsConverting() {
		t.Fatal("new manager should be idle")
	}
	if got := m.Current().State; got != domain.ConversionStateIdle {
		t.Fatalf("initial state = %s, want idle", got)
	}

	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !m.IsConverting() {
		t.Fatal("expected converting after begin")
	}

	m.Finish(domain.ConversionStatus{State: domain.ConversionStateDone})
	if got := m.Current().State; got != domain.ConversionStateDone {
		t.Fatalf("state = %s, want done", got)
	}
	if m.IsConverting() {
		t.Fatal("done must release the gate")
	}
}

// TestManagerBeginRejectsSecondConversion checks the single-flight gate.
func TestManagerBeginRejectsSecondConversion(t *testing.T) {
	m := NewManager()
	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := m.Begin(); !errors.Is(err, ErrConversionRunning) {
		t.Fatalf("second begin error = %v, want %v", err, ErrConversionRunning)
	}

	m.Finish(domain.ConversionStatus{State: domain.ConversionStateError, Message: "boom"})
	if err := m.Begin(); err != nil {
		t.Fatalf("begin after terminal state: %v", err)
	}
}

// TestManagerFinishKeepsErrorMessageVerbatim checks stderr passthrough.
func TestManagerFinishKeepsErrorMessageVerbatim(t *testing.T) {
	m := NewManager()
	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}

	stderr := "Output file #0 does not contain any stream\n"
	m.Finish(domain.ConversionStatus{State: domain.ConversionStateError, Message: stderr})

	got := m.Current()
	if got.State != domain.ConversionStateError {
		t.Fatalf("state = %s, want error", got.State)
	}
	if got.Message != stderr {
		t.Fatalf("message = %q, want %q", got.Message, stderr)
	}
}

// TestManagerResetOverridesAnyState checks selection resets and that a job
// finishing after the reset still lands its terminal write.
func TestManagerResetOverridesAnyState(t *testing.T) {
	m := NewManager()
	if err := m.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}

	m.Reset()
	if got := m.Current().State; got != domain.ConversionStateIdle {
		t.Fatalf("state = %s, want idle", got)
	}

	m.Finish(domain.ConversionStatus{State: domain.ConversionStateDone})
	if got := m.Current().State; got != domain.ConversionStateDone {
		t.Fatalf("state = %s, want done (stale finish wins)", got)
	}
}
