package service

import "time"

// Clock supplies the current time to the session protocols.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time {
	return f()
}

// NewSystemClock returns a Clock reading the wall clock in UTC.
func NewSystemClock() Clock {
	return ClockFunc(func() time.Time {
		return time.Now().UTC()
	})
}
