package calendar

import (
	"context"
	"sort"
	"strconv"
	"time"
)

// StubCalendar is an in-memory Calendar implementation for tests.
type StubCalendar struct {
	Events []Event
	// Err, when set, is returned by every operation.
	Err     error
	NowFunc func() time.Time

	nextId int
}

func NewStubCalendar() *StubCalendar {
	return &StubCalendar{NowFunc: time.Now}
}

func (s *StubCalendar) ListEvents(_ context.Context, day time.Time) ([]Event, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events := make([]Event, 0, len(s.Events))
	for _, e := range s.Events {
		if !e.StartTime.Before(dayStart) && e.StartTime.Before(dayEnd) {
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

func (s *StubCalendar) CreateEvent(_ context.Context, title string, start, end time.Time, booker string) (*Event, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.nextId++
	event := Event{
		ID:        strconv.Itoa(s.nextId),
		Title:     title,
		StartTime: start,
		EndTime:   end,
		Organizer: booker,
		Provider:  ProviderLocal,
	}
	s.Events = append(s.Events, event)
	return &event, nil
}

func (s *StubCalendar) ExtendEvent(_ context.Context, eventId string, minutes int) (*Event, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	for i := range s.Events {
		if s.Events[i].ID == eventId {
			s.Events[i].EndTime = s.Events[i].EndTime.Add(time.Duration(minutes) * time.Minute)
			return &s.Events[i], nil
		}
	}
	return nil, ErrEventNotFound
}

func (s *StubCalendar) EndEvent(_ context.Context, eventId string) error {
	if s.Err != nil {
		return s.Err
	}
	for i := range s.Events {
		if s.Events[i].ID == eventId {
			s.Events[i].EndTime = s.NowFunc().UTC()
			return nil
		}
	}
	return ErrEventNotFound
}

func (s *StubCalendar) DeleteEvent(_ context.Context, eventId string) error {
	if s.Err != nil {
		return s.Err
	}
	for i := range s.Events {
		if s.Events[i].ID == eventId {
			s.Events = append(s.Events[:i], s.Events[i+1:]...)
			return nil
		}
	}
	return ErrEventNotFound
}
