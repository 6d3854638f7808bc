package exam

import (
	"sync"
	"time"
)

// DefaultTimeLimit is the exam budget in seconds when none is configured.
const DefaultTimeLimit = 20 * 60

// DefaultTickInterval is the real-time length of one countdown step.
const DefaultTickInterval = time.Second

// Countdown is a remaining-seconds counter that only moves down.
type Countdown struct {
	total     int
	remaining int
}

func NewCountdown(total int) Countdown {
	if total < 0 {
		total = 0
	}
	return Countdown{total: total, remaining: total}
}

// Tick decrements by one second and reports whether it moved.
func (c *Countdown) Tick() bool {
	if c.remaining <= 0 {
		return false
	}
	c.remaining--
	return true
}

func (c Countdown) Remaining() int { return c.remaining }
func (c Countdown) Total() int     { return c.total }
func (c Countdown) Expired() bool  { return c.remaining <= 0 }

// Scheduler runs fn every interval until the returned stop func is called.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// TickerScheduler drives callbacks from a time.Ticker on its own goroutine.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
