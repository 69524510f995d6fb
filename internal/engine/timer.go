package engine

import "time"

// TickTimer is a deadline on the match clock. Nothing blocks on it; the tick
// polls Expired.
type TickTimer struct {
	deadline time.Duration
	running  bool
}

func startTimer(now, d time.Duration) TickTimer {
	return TickTimer{deadline: now + d, running: true}
}

func (t TickTimer) Running() bool { return t.running }

func (t TickTimer) Expired(now time.Duration) bool {
	return t.running && now >= t.deadline
}

func (t TickTimer) Remaining(now time.Duration) time.Duration {
	if !t.running || now >= t.deadline {
		return 0
	}
	return t.deadline - now
}
