package local

import (
	"context"
	"sort"
	"time"
)

type StubRepository struct {
	Events []Event
	nextId int
}

func (s *StubRepository) StoreEvent(_ context.Context, event Event) (Event, error) {
	s.nextId++
	event.Id = s.nextId
	s.Events = append(s.Events, event)
	return event, nil
}

func (s *StubRepository) GetEventsForRange(_ context.Context, roomId int, from, to time.Time) ([]Event, error) {
	events := make([]Event, 0, len(s.Events))
	for _, e := range s.Events {
		if e.RoomId == roomId && !e.StartTime.Before(from) && e.StartTime.Before(to) {
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

func (s *StubRepository) GetEvent(_ context.Context, id int) (*Event, error) {
	for _, e := range s.Events {
		if e.Id == id {
			event := e
			return &event, nil
		}
	}
	return nil, nil
}

func (s *StubRepository) UpdateEventEnd(_ context.Context, id int, end time.Time) error {
	for i := range s.Events {
		if s.Events[i].Id == id {
			s.Events[i].EndTime = end
		}
	}
	return nil
}

func (s *StubRepository) DeleteEvent(_ context.Context, id int) (bool, error) {
	for i, e := range s.Events {
		if e.Id == id {
			s.Events = append(s.Events[:i], s.Events[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
