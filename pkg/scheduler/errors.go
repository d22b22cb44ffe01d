package scheduler

import (
	"errors"
	"fmt"

	"github.com/roomdesk/roomdesk/pkg/calendar"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoActiveMeeting = errors.New("no meeting is currently in progress")
)

// ConflictError reports that a requested slot overlaps an existing
// event. The first conflicting event is carried so callers can name it.
type ConflictError struct {
	Event calendar.Event
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("requested slot conflicts with %q (%s - %s)",
		e.Event.Title,
		e.Event.StartTime.Format("15:04"),
		e.Event.EndTime.Format("15:04"))
}
