package domain

import "time"

// Clock provides "today" so past-date validation and the completion sweep
// are testable.
type Clock interface {
	Today() time.Time
}

type RealClock struct{}

func (RealClock) Today() time.Time {
	return NormalizeDate(time.Now().UTC())
}
