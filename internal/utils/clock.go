package utils

import "time"

// Clock abstracts "now" so that schedule evaluation (current meeting,
// next meeting, booking defaults) can be pinned in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock used outside of tests.
type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock returns a fixed instant until moved with SetNow.
type MockClock struct {
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}
