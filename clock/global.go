package clock

import "time"

var GlobalClock Clock

// Default returns s, or GlobalClock when s is nil.
func Default(s Source) Source {
	if s == nil {
		return &GlobalClock
	}

	return s
}

// MustIncrement is GlobalClock.MustIncrement.
func MustIncrement(prev time.Time) time.Time {
	return GlobalClock.MustIncrement(prev)
}
