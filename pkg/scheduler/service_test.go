package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/roomdesk/roomdesk/internal/utils"
	"github.com/roomdesk/roomdesk/pkg/calendar"
	"github.com/roomdesk/roomdesk/pkg/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	localRoomId    = 1
	externalRoomId = 2
	unknownRoomId  = 99
)

type stubLocalSource struct {
	cal calendar.Calendar
}

func (s *stubLocalSource) Calendar(_ int) calendar.Calendar {
	return s.cal
}

type stubExternalSource struct {
	cal calendar.Calendar
	err error
}

func (s *stubExternalSource) Calendar(_ context.Context, _ string) (calendar.Calendar, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cal, nil
}

type schedulerFixture struct {
	service  *ServiceImpl
	localCal *calendar.StubCalendar
	extCal   *calendar.StubCalendar
	external *stubExternalSource
	clock    *utils.MockClock
}

func setupSchedulerTest(t *testing.T) *schedulerFixture {
	t.Helper()

	rooms := room.NewService(&room.StubRepository{Rooms: []room.Room{
		{Id: localRoomId, Name: "Local Room", Provider: calendar.ProviderLocal},
		{Id: externalRoomId, Name: "External Room", CalendarId: "room@example.com", Provider: calendar.ProviderGoogle},
	}})

	localCal := calendar.NewStubCalendar()
	extCal := calendar.NewStubCalendar()
	external := &stubExternalSource{cal: extCal}
	clock := &utils.MockClock{FixedNow: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)}

	service := NewServiceWithClock(rooms, external, external, &stubLocalSource{cal: localCal}, clock)
	return &schedulerFixture{
		service:  service,
		localCal: localCal,
		extCal:   extCal,
		external: external,
		clock:    clock,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 10, hour, minute, 0, 0, time.UTC)
}

func TestServiceImpl_Book(t *testing.T) {
	t.Run("should report a conflict when re-booking the just-booked slot", func(t *testing.T) {
		// given
		f := setupSchedulerTest(t)
		ctx := context.Background()

		// when
		created, err := f.service.Book(ctx, localRoomId, BookingRequest{
			Title:     "Planning",
			StartTime: at(14, 0),
			EndTime:   at(15, 0),
			Booker:    "alice@example.com",
		})

		// then
		require.NoError(t, err)
		require.NotNil(t, created)

		conflicts, err := f.service.CheckConflicts(ctx, localRoomId, at(14, 0), at(15, 0))
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Equal(t, created.ID, conflicts[0].ID)

		_, err = f.service.Book(ctx, localRoomId, BookingRequest{
			Title:     "Planning again",
			StartTime: at(14, 0),
			EndTime:   at(15, 0),
		})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "Planning", conflict.Event.Title)
	})

	t.Run("should allow back-to-back bookings and reject overlapping ones", func(t *testing.T) {
		// given
		f := setupSchedulerTest(t)
		ctx := context.Background()

		// when: book(R, "Sync", 09:00-09:30)
		_, err := f.service.Book(ctx, localRoomId, BookingRequest{
			Title:     "Sync",
			StartTime: at(9, 0),
			EndTime:   at(9, 30),
		})
		require.NoError(t, err)

		// then: an overlapping booking fails naming the existing event
		_, err = f.service.Book(ctx, localRoomId, BookingRequest{
			Title:     "Overlap",
			StartTime: at(9, 15),
			EndTime:   at(9, 45),
		})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "Sync", conflict.Event.Title)

		// and: a booking starting exactly when the first ends succeeds
		_, err = f.service.Book(ctx, localRoomId, BookingRequest{
			Title:     "Back-to-back",
			StartTime: at(9, 30),
			EndTime:   at(10, 0),
		})
		require.NoError(t, err)
	})

	t.Run("should fail with ErrRoomNotFound for an unknown room", func(t *testing.T) {
		f := setupSchedulerTest(t)

		_, err := f.service.Book(context.Background(), unknownRoomId, BookingRequest{
			Title:     "Nowhere",
			StartTime: at(9, 0),
			EndTime:   at(10, 0),
		})

		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("should fail with ErrInvalidArgument when start is not before end", func(t *testing.T) {
		f := setupSchedulerTest(t)

		_, err := f.service.Book(context.Background(), localRoomId, BookingRequest{
			Title:     "Backwards",
			StartTime: at(10, 0),
			EndTime:   at(9, 0),
		})
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = f.service.Book(context.Background(), localRoomId, BookingRequest{
			Title:     "Zero length",
			StartTime: at(10, 0),
			EndTime:   at(10, 0),
		})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestServiceImpl_CheckConflicts(t *testing.T) {
	t.Run("should not report touching intervals as conflicts", func(t *testing.T) {
		// given: an existing event 10:00-11:00
		f := setupSchedulerTest(t)
		ctx := context.Background()
		_, err := f.service.Book(ctx, localRoomId, BookingRequest{
			Title:     "Standup",
			StartTime: at(10, 0),
			EndTime:   at(11, 0),
		})
		require.NoError(t, err)

		// then: a slot ending exactly at 10:00 does not conflict
		conflicts, err := f.service.CheckConflicts(ctx, localRoomId, at(9, 0), at(10, 0))
		require.NoError(t, err)
		assert.Empty(t, conflicts)

		// and: a slot starting exactly at 11:00 does not conflict
		conflicts, err = f.service.CheckConflicts(ctx, localRoomId, at(11, 0), at(12, 0))
		require.NoError(t, err)
		assert.Empty(t, conflicts)

		// and: any strict overlap does
		conflicts, err = f.service.CheckConflicts(ctx, localRoomId, at(10, 59), at(11, 30))
		require.NoError(t, err)
		assert.Len(t, conflicts, 1)
	})
}

func TestServiceImpl_CurrentEvent(t *testing.T) {
	t.Run("should include events at their exact boundaries", func(t *testing.T) {
		// given: an event 10:00-11:00
		f := setupSchedulerTest(t)
		ctx := context.Background()
		f.localCal.Events = []calendar.Event{
			{ID: "1", Title: "Review", StartTime: at(10, 0), EndTime: at(11, 0), Provider: calendar.ProviderLocal},
		}

		// then: current at exactly 10:00
		f.clock.SetNow(at(10, 0))
		current, err := f.service.CurrentEvent(ctx, localRoomId)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "Review", current.Title)

		// and: still current at exactly 11:00
		f.clock.SetNow(at(11, 0))
		current, err = f.service.CurrentEvent(ctx, localRoomId)
		require.NoError(t, err)
		require.NotNil(t, current)

		// and: gone one second later
		f.clock.SetNow(at(11, 0).Add(time.Second))
		current, err = f.service.CurrentEvent(ctx, localRoomId)
		require.NoError(t, err)
		assert.Nil(t, current)
	})

	t.Run("should return nil when the room is free", func(t *testing.T) {
		f := setupSchedulerTest(t)

		current, err := f.service.CurrentEvent(context.Background(), localRoomId)

		require.NoError(t, err)
		assert.Nil(t, current)
	})
}

func TestServiceImpl_NextEvent(t *testing.T) {
	t.Run("should return the earliest event starting strictly after now", func(t *testing.T) {
		// given
		f := setupSchedulerTest(t)
		f.localCal.Events = []calendar.Event{
			{ID: "1", Title: "Morning", StartTime: at(9, 0), EndTime: at(10, 0), Provider: calendar.ProviderLocal},
			{ID: "2", Title: "Afternoon", StartTime: at(14, 0), EndTime: at(15, 0), Provider: calendar.ProviderLocal},
		}
		f.clock.SetNow(at(12, 0))

		// when
		next, err := f.service.NextEvent(context.Background(), localRoomId)

		// then: the 9:00 event is in the past, the 14:00 one is next
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, "Afternoon", next.Title)
	})

	t.Run("should not treat an event starting exactly now as next", func(t *testing.T) {
		f := setupSchedulerTest(t)
		f.localCal.Events = []calendar.Event{
			{ID: "1", Title: "Now", StartTime: at(12, 0), EndTime: at(13, 0), Provider: calendar.ProviderLocal},
		}
		f.clock.SetNow(at(12, 0))

		next, err := f.service.NextEvent(context.Background(), localRoomId)

		require.NoError(t, err)
		assert.Nil(t, next)
	})

	t.Run("should break start-time ties by adapter order", func(t *testing.T) {
		f := setupSchedulerTest(t)
		f.localCal.Events = []calendar.Event{
			{ID: "1", Title: "First", StartTime: at(14, 0), EndTime: at(15, 0), Provider: calendar.ProviderLocal},
			{ID: "2", Title: "Second", StartTime: at(14, 0), EndTime: at(14, 30), Provider: calendar.ProviderLocal},
		}
		f.clock.SetNow(at(12, 0))

		next, err := f.service.NextEvent(context.Background(), localRoomId)

		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, "First", next.Title)
	})
}

func TestServiceImpl_EventsForDate(t *testing.T) {
	t.Run("should degrade to an empty day when the calendar source fails", func(t *testing.T) {
		// given: a listing failure on the room's calendar
		f := setupSchedulerTest(t)
		f.localCal.Err = calendar.ErrProviderRejected

		// when
		events, err := f.service.EventsForDate(context.Background(), localRoomId, at(0, 0))

		// then
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("should degrade to an empty day when the provider has no credential", func(t *testing.T) {
		f := setupSchedulerTest(t)
		f.external.err = calendar.ErrProviderUnavailable

		events, err := f.service.EventsForDate(context.Background(), externalRoomId, at(0, 0))

		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("should fail with ErrRoomNotFound for an unknown room", func(t *testing.T) {
		f := setupSchedulerTest(t)

		_, err := f.service.EventsForDate(context.Background(), unknownRoomId, at(0, 0))

		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("should return events sorted by start time", func(t *testing.T) {
		f := setupSchedulerTest(t)
		f.localCal.Events = []calendar.Event{
			{ID: "2", Title: "Later", StartTime: at(15, 0), EndTime: at(16, 0), Provider: calendar.ProviderLocal},
			{ID: "1", Title: "Earlier", StartTime: at(9, 0), EndTime: at(10, 0), Provider: calendar.ProviderLocal},
		}

		events, err := f.service.EventsForDate(context.Background(), localRoomId, at(0, 0))

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "Earlier", events[0].Title)
		assert.Equal(t, "Later", events[1].Title)
	})
}

func TestServiceImpl_EventsForWeek(t *testing.T) {
	t.Run("should return seven consecutive days keyed by date", func(t *testing.T) {
		// given
		f := setupSchedulerTest(t)
		f.localCal.Events = []calendar.Event{
			{ID: "1", Title: "Midweek", StartTime: at(10, 0), EndTime: at(11, 0), Provider: calendar.ProviderLocal},
		}

		// when
		week, err := f.service.EventsForWeek(context.Background(), localRoomId, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC))

		// then
		require.NoError(t, err)
		require.Len(t, week, 7)
		assert.Len(t, week["2024-01-10"], 1)
		assert.Empty(t, week["2024-01-08"])
		assert.Contains(t, week, "2024-01-14")
	})
}

func TestServiceImpl_EventsForMonth(t *testing.T) {
	t.Run("should fail with ErrInvalidArgument for an out-of-range month", func(t *testing.T) {
		f := setupSchedulerTest(t)

		_, err := f.service.EventsForMonth(context.Background(), localRoomId, 2024, 0)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = f.service.EventsForMonth(context.Background(), localRoomId, 2024, 13)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("should cover every day of the month", func(t *testing.T) {
		f := setupSchedulerTest(t)

		days, err := f.service.EventsForMonth(context.Background(), localRoomId, 2024, 2)

		require.NoError(t, err)
		assert.Len(t, days, 29)
		assert.Contains(t, days, "2024-02-29")
	})
}

func TestServiceImpl_BookRecurring(t *testing.T) {
	t.Run("should skip conflicting instances and create the rest", func(t *testing.T) {
		// given: a two-week Mon/Wed series with one Wednesday already taken
		f := setupSchedulerTest(t)
		ctx := context.Background()
		f.localCal.Events = []calendar.Event{
			{
				ID:        "existing",
				Title:     "All hands",
				StartTime: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
				EndTime:   time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
				Provider:  calendar.ProviderLocal,
			},
		}

		// when: Mondays and Wednesdays, 09:30 for 60 minutes, Jan 8 - Jan 21
		created, skipped, err := f.service.BookRecurring(ctx, localRoomId, RecurringBookingRequest{
			Title:           "Team sync",
			StartHour:       9,
			StartMinute:     30,
			DurationMinutes: 60,
			DaysOfWeek:      []int{0, 2},
			StartDate:       time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			EndDate:         time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC),
		})

		// then: Jan 8, 15, 17 created; Jan 10 skipped
		require.NoError(t, err)
		assert.Equal(t, 3, created)
		assert.Equal(t, 1, skipped)
	})

	t.Run("should see instances created earlier in the same batch", func(t *testing.T) {
		// given: two series over the same Monday slot
		f := setupSchedulerTest(t)
		ctx := context.Background()
		request := RecurringBookingRequest{
			Title:           "Standup",
			StartHour:       10,
			StartMinute:     0,
			DurationMinutes: 30,
			DaysOfWeek:      []int{0},
			StartDate:       time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			EndDate:         time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		}
		created, skipped, err := f.service.BookRecurring(ctx, localRoomId, request)
		require.NoError(t, err)
		require.Equal(t, 2, created)
		require.Equal(t, 0, skipped)

		// when: booking the identical series again
		created, skipped, err = f.service.BookRecurring(ctx, localRoomId, request)

		// then: every instance conflicts with the first batch
		require.NoError(t, err)
		assert.Equal(t, 0, created)
		assert.Equal(t, 2, skipped)
	})

	t.Run("should validate the request", func(t *testing.T) {
		f := setupSchedulerTest(t)
		ctx := context.Background()
		base := RecurringBookingRequest{
			Title:           "Bad",
			StartHour:       9,
			StartMinute:     0,
			DurationMinutes: 30,
			DaysOfWeek:      []int{0},
			StartDate:       time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			EndDate:         time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC),
		}

		invalidHour := base
		invalidHour.StartHour = 24
		_, _, err := f.service.BookRecurring(ctx, localRoomId, invalidHour)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		invalidDay := base
		invalidDay.DaysOfWeek = []int{7}
		_, _, err = f.service.BookRecurring(ctx, localRoomId, invalidDay)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		noDays := base
		noDays.DaysOfWeek = nil
		_, _, err = f.service.BookRecurring(ctx, localRoomId, noDays)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		invalidRange := base
		invalidRange.EndDate = base.StartDate.AddDate(0, 0, -1)
		_, _, err = f.service.BookRecurring(ctx, localRoomId, invalidRange)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		invalidDuration := base
		invalidDuration.DurationMinutes = 0
		_, _, err = f.service.BookRecurring(ctx, localRoomId, invalidDuration)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestServiceImpl_Cancel(t *testing.T) {
	t.Run("should delete an existing booking", func(t *testing.T) {
		// given
		f := setupSchedulerTest(t)
		ctx := context.Background()
		created, err := f.service.Book(ctx, localRoomId, BookingRequest{
			Title:     "Cancelled later",
			StartTime: at(14, 0),
			EndTime:   at(15, 0),
		})
		require.NoError(t, err)

		// when
		err = f.service.Cancel(ctx, localRoomId, created.ID)

		// then
		require.NoError(t, err)
		events, err := f.service.EventsForDate(ctx, localRoomId, at(0, 0))
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("should succeed when the event is already gone", func(t *testing.T) {
		f := setupSchedulerTest(t)

		err := f.service.Cancel(context.Background(), localRoomId, "missing")

		assert.NoError(t, err)
	})
}

func TestServiceImpl_Extend(t *testing.T) {
	t.Run("should push the end time forward", func(t *testing.T) {
		// given
		f := setupSchedulerTest(t)
		ctx := context.Background()
		created, err := f.service.Book(ctx, localRoomId, BookingRequest{
			Title:     "Running long",
			StartTime: at(14, 0),
			EndTime:   at(15, 0),
		})
		require.NoError(t, err)

		// when
		extended, err := f.service.Extend(ctx, localRoomId, created.ID, 15)

		// then
		require.NoError(t, err)
		assert.Equal(t, at(15, 15), extended.EndTime)
	})

	t.Run("should reject a non-positive extension", func(t *testing.T) {
		f := setupSchedulerTest(t)

		_, err := f.service.Extend(context.Background(), localRoomId, "1", 0)

		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("should propagate ErrEventNotFound", func(t *testing.T) {
		f := setupSchedulerTest(t)

		_, err := f.service.Extend(context.Background(), localRoomId, "missing", 15)

		assert.ErrorIs(t, err, calendar.ErrEventNotFound)
	})
}
