package clock

import "time"

// SessionTimer tracks frame delta, total session runtime, and the interval
// since the last triggered event. All queries are derived from an injected
// monotonic now-function so the timer can run against a simulated clock.
type SessionTimer struct {
	now func() float64

	lastTick     float64
	sessionStart float64
	lastEvent    float64

	DeltaTime          float64
	SessionTime        float64
	TimeSinceLastEvent float64
}

func NewSessionTimer(now func() float64) *SessionTimer {
	start := now()
	return &SessionTimer{
		now:          now,
		lastTick:     start,
		sessionStart: start,
		lastEvent:    start,
	}
}

// Monotonic returns a now-function backed by the runtime monotonic clock,
// reporting seconds since it was created.
func Monotonic() func() float64 {
	start := time.Now()
	return func() float64 {
		return time.Since(start).Seconds()
	}
}

// Tick advances the timer and returns the frame delta in seconds.
func (t *SessionTimer) Tick() float64 {
	now := t.now()
	t.DeltaTime = now - t.lastTick
	t.lastTick = now

	t.SessionTime = now - t.sessionStart
	t.TimeSinceLastEvent = now - t.lastEvent
	return t.DeltaTime
}

// MarkEventTriggered resets the event interval at the current clock reading.
func (t *SessionTimer) MarkEventTriggered() {
	t.lastEvent = t.now()
	t.TimeSinceLastEvent = 0
}

// HasReachedRuntime reports whether the session has run for at least the
// given number of seconds.
func (t *SessionTimer) HasReachedRuntime(seconds float64) bool {
	return t.SessionTime >= seconds
}
