package schedule

import "time"

// producer is one periodic sub-task of the scheduler loop.
type producer struct {
	spec Spec
	next time.Time
}

// advance moves a due deadline one period forward. Firings missed while the
// loop was busy are skipped instead of replayed in a burst.
func advance(next time.Time, period time.Duration, now time.Time) time.Time {
	next = next.Add(period)
	if !next.After(now) {
		next = now.Add(period)
	}
	return next
}
