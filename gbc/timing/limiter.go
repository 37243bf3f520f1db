// Package timing paces the emulation to the speed of the real hardware.
package timing

import (
	"log/slog"
	"time"
)

// Constants for Game Boy timing
const (
	CyclesPerFrame = 70224
	CPUFrequency   = 4194304
)

// maxLag is how far behind schedule a limiter can fall before it stops
// trying to catch up, e.g. after sitting in the debugger.
const maxLag = 5 * time.Millisecond

// TargetFPS calculates the exact Game Boy frame rate.
func TargetFPS() float64 {
	return float64(CPUFrequency) / float64(CyclesPerFrame)
}

// FrameDuration returns the target duration of a single frame.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / TargetFPS())
}

// Limiter controls frame rate timing for emulation.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// NewNoOpLimiter returns a limiter that doesn't limit.
func NewNoOpLimiter() Limiter {
	return &noOpLimiter{}
}

type noOpLimiter struct{}

func (n *noOpLimiter) WaitForNextFrame() {}
func (n *noOpLimiter) Reset()            {}

// SleepLimiter sleeps until the next frame is due. Deadlines advance by a
// whole frame each time, so short oversleeps do not add up.
type SleepLimiter struct {
	frameTime time.Duration
	next      time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func NewSleepLimiter() *SleepLimiter {
	return newSleepLimiter(time.Now, time.Sleep)
}

func newSleepLimiter(now func() time.Time, sleep func(time.Duration)) *SleepLimiter {
	l := &SleepLimiter{
		frameTime: FrameDuration(),
		now:       now,
		sleep:     sleep,
	}
	l.Reset()
	return l
}

func (l *SleepLimiter) WaitForNextFrame() {
	now := l.now()
	wait := l.next.Sub(now)

	switch {
	case wait > 0:
		l.sleep(wait)
	case wait < -maxLag:
		slog.Debug("Frame limiter fell behind", "lag_ms", (-wait).Milliseconds())
		l.next = now
	}

	l.next = l.next.Add(l.frameTime)
}

func (l *SleepLimiter) Reset() {
	l.next = l.now()
}
