package local

import (
	"context"
	"strconv"
	"time"

	"github.com/roomdesk/roomdesk/internal/utils"
	"github.com/roomdesk/roomdesk/pkg/calendar"
)

// Service hands out calendar adapters backed by the local event store.
// Rooms without an external calendar provider are served by these.
type Service struct {
	repo  Repository
	clock utils.Clock
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: utils.SystemClock{}}
}

func NewServiceWithClock(repo Repository, clock utils.Clock) *Service {
	return &Service{repo: repo, clock: clock}
}

// Calendar returns the adapter bound to one room's local events.
func (s *Service) Calendar(roomId int) calendar.Calendar {
	return &Calendar{repo: s.repo, clock: s.clock, roomId: roomId}
}

// Calendar adapts the local event repository to the calendar contract.
// Unlike the remote adapters it needs no credential.
type Calendar struct {
	repo   Repository
	clock  utils.Clock
	roomId int
}

func (c *Calendar) ListEvents(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	stored, err := c.repo.GetEventsForRange(ctx, c.roomId, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	events := make([]calendar.Event, 0, len(stored))
	for _, e := range stored {
		events = append(events, toCalendarEvent(e))
	}
	return events, nil
}

func (c *Calendar) CreateEvent(ctx context.Context, title string, start, end time.Time, booker string) (*calendar.Event, error) {
	stored, err := c.repo.StoreEvent(ctx, Event{
		RoomId:    c.roomId,
		Title:     title,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Organizer: booker,
	})
	if err != nil {
		return nil, err
	}
	event := toCalendarEvent(stored)
	return &event, nil
}

func (c *Calendar) ExtendEvent(ctx context.Context, eventId string, minutes int) (*calendar.Event, error) {
	stored, err := c.getEvent(ctx, eventId)
	if err != nil {
		return nil, err
	}

	newEnd := stored.EndTime.Add(time.Duration(minutes) * time.Minute)
	if err := c.repo.UpdateEventEnd(ctx, stored.Id, newEnd); err != nil {
		return nil, err
	}
	stored.EndTime = newEnd
	event := toCalendarEvent(*stored)
	return &event, nil
}

func (c *Calendar) EndEvent(ctx context.Context, eventId string) error {
	stored, err := c.getEvent(ctx, eventId)
	if err != nil {
		return err
	}
	return c.repo.UpdateEventEnd(ctx, stored.Id, c.clock.Now().UTC())
}

func (c *Calendar) DeleteEvent(ctx context.Context, eventId string) error {
	id, err := strconv.Atoi(eventId)
	if err != nil {
		return calendar.ErrEventNotFound
	}
	deleted, err := c.repo.DeleteEvent(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return calendar.ErrEventNotFound
	}
	return nil
}

func (c *Calendar) getEvent(ctx context.Context, eventId string) (*Event, error) {
	id, err := strconv.Atoi(eventId)
	if err != nil {
		return nil, calendar.ErrEventNotFound
	}
	stored, err := c.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.RoomId != c.roomId {
		return nil, calendar.ErrEventNotFound
	}
	return stored, nil
}

func toCalendarEvent(e Event) calendar.Event {
	return calendar.Event{
		ID:        strconv.Itoa(e.Id),
		Title:     e.Title,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Organizer: e.Organizer,
		Provider:  calendar.ProviderLocal,
	}
}
