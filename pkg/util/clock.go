package util

import "time"

type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) Now() time.Time                         { return time.Now() }

// FakeClock returns a fixed instant; used by tests that pin nonce and
// expiration timestamps.
type FakeClock struct {
	Instant time.Time
}

func (c FakeClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (c FakeClock) Now() time.Time                         { return c.Instant }
