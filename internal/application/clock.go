package application

import "time"

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock implementasi default, pakai time.Now() in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Now returns c.Now(), falling back to the system clock when c is nil.
func Now(c Clock) time.Time {
	if c == nil {
		return SystemClock{}.Now()
	}
	return c.Now()
}
