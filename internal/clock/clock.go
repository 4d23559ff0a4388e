package clock

import "time"

// Clock abstracts the time source used by the scheduler and the status rules.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Real implements Clock using the standard library.
type Real struct{}

// Now returns the current UTC time.
func (Real) Now() time.Time {
	return time.Now().UTC()
}

func (Real) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
