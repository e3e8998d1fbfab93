package types

import "time"

// Clock supplies the engine's notion of now. The core never reads the wall
// clock directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
