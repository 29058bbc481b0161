package game

import "time"

// TickInterval is how often controllers recompute the countdown. The value
// is a recomputation cadence, not a decrement: every client derives the same
// remaining time from the shared start timestamp regardless of how often it
// happens to tick.
const TickInterval = 250 * time.Millisecond

// Remaining derives the countdown from the shared question start timestamp.
// It never goes negative and reaches exactly zero at startedAt+limit.
func Remaining(now, startedAt time.Time, limit time.Duration) time.Duration {
	if startedAt.IsZero() {
		return 0
	}
	rem := limit - now.Sub(startedAt)
	if rem < 0 {
		return 0
	}
	return rem
}

// RemainingSeconds is Remaining rounded up to whole seconds for display, so
// the countdown shows the full limit at start and 0 only at expiry.
func RemainingSeconds(now, startedAt time.Time, limit time.Duration) int {
	rem := Remaining(now, startedAt, limit)
	secs := int(rem / time.Second)
	if rem%time.Second != 0 {
		secs++
	}
	return secs
}
