package services

import (
	"time"
)

// Clock abstracts wall-clock reads so idle deadlines and sweeps can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func NewSystemClock() Clock {
	return systemClock{}
}
