package calendar

import "time"

// Event is the provider-agnostic event record the scheduling engine
// operates on. IDs are provider-opaque strings; the local store issues
// numeric ids coerced to strings. All instants are UTC.
type Event struct {
	ID        string
	Title     string
	StartTime time.Time
	EndTime   time.Time
	Organizer string
	Provider  string
}
