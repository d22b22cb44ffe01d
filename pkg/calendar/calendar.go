package calendar

import (
	"context"
	"time"
)

// Provider names for the closed set of supported backends.
const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
	ProviderLocal     = "local"
)

// Calendar is the contract every room backend implements. A value is bound
// to a single calendar (a remote calendar reference or a local room) at
// construction time, so adding a backend means adding one implementation,
// not touching callers.
type Calendar interface {
	// ListEvents returns the events starting within [day 00:00, day+1 00:00) UTC,
	// with provider-side recurrences expanded to single instances, ordered by
	// start time ascending.
	ListEvents(ctx context.Context, day time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, title string, start, end time.Time, booker string) (*Event, error)
	// ExtendEvent pushes the event's end time forward by the given number of minutes.
	ExtendEvent(ctx context.Context, eventId string, minutes int) (*Event, error)
	// EndEvent sets the event's end time to the current time.
	EndEvent(ctx context.Context, eventId string) error
	DeleteEvent(ctx context.Context, eventId string) error
}
