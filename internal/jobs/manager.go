package jobs

import (
	"errors"
	"sync"

	"vid2mp3/internal/domain"
)

// ErrConversionRunning is returned when starting a second conversion while
// one is still in flight.
var ErrConversionRunning = errors.New("conversion already running")

// Manager guards the shared conversion status observed by the UI loop.
// Values are replaced wholesale, never partially mutated; the lock is held
// only for the assignment, never across subprocess execution.
type Manager struct {
	mu      sync.RWMutex
	current domain.ConversionStatus
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.ConversionStatus{State: domain.ConversionStateIdle},
	}
}

// Current returns a snapshot of the conversion status.
func (m *Manager) Current() domain.ConversionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Begin moves the status to converting. It is the only conditional
// transition: while a conversion is in flight a second Begin fails with
// ErrConversionRunning, which makes the convert gate structural rather
// than a UI courtesy.
func (m *Manager) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.State == domain.ConversionStateConverting {
		return ErrConversionRunning
	}
	m.current = domain.ConversionStatus{State: domain.ConversionStateConverting}
	return nil
}

// Finish stores the job's terminal outcome. The write is unconditional:
// a job finishing after the selection was replaced still lands, last
// write wins.
func (m *Manager) Finish(status domain.ConversionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = status
}

// Reset returns the status to idle when a new input is selected.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.ConversionStatus{State: domain.ConversionStateIdle}
}

// IsConverting reports whether a conversion job currently holds the gate.
func (m *Manager) IsConverting() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.State == domain.ConversionStateConverting
}
