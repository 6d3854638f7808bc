package testutil

import (
	"sync"
	"time"
)

// ManualScheduler is an exam.Scheduler whose ticks are fired by the test.
// Only the newest schedule fires; each stop func cancels its own schedule.
type ManualScheduler struct {
	mu     sync.Mutex
	fn     func()
	starts int
	active bool
}

func (m *ManualScheduler) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	gen := m.starts
	m.fn = fn
	m.active = true
	return func() {
		m.mu.Lock()
		if m.starts == gen {
			m.active = false
		}
		m.mu.Unlock()
	}
}

// Fire delivers up to n ticks, stopping early once the schedule is stopped.
func (m *ManualScheduler) Fire(n int) {
	for i := 0; i < n; i++ {
		m.mu.Lock()
		fn, active := m.fn, m.active
		m.mu.Unlock()
		if !active || fn == nil {
			return
		}
		fn()
	}
}

// Active reports whether a schedule is running.
func (m *ManualScheduler) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil && m.active
}

// Starts counts the schedules created so far.
func (m *ManualScheduler) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Last returns the most recent callback even if it was stopped.
func (m *ManualScheduler) Last() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn
}
