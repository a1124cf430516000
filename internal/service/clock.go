package service

import "time"

// Clock abstracts wall-clock reads so deadline logic is deterministic
// in tests.  All implementations must return UTC.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
