package clock

import "time"

// Clock abstracts the current-time source so timestamp logic is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the wall-clock time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Fixed is a Clock pinned to a single instant, for tests.
type Fixed struct {
	Instant time.Time
}

func (f Fixed) Now() time.Time { return f.Instant }
