package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/roomdesk/roomdesk/internal/utils"
	"github.com/roomdesk/roomdesk/pkg/calendar"
	"github.com/roomdesk/roomdesk/pkg/room"
	log "github.com/sirupsen/logrus"
)

// LocalSource provides a calendar backed by the local event store for a
// given room. Satisfied by local.Service.
type LocalSource interface {
	Calendar(roomId int) calendar.Calendar
}

// ExternalSource provides a calendar for an externally hosted calendar
// id. Satisfied by the Google and Microsoft services.
type ExternalSource interface {
	Calendar(ctx context.Context, calendarId string) (calendar.Calendar, error)
}

type BookingRequest struct {
	Title     string
	StartTime time.Time
	EndTime   time.Time
	Booker    string
}

type RecurringBookingRequest struct {
	Title           string
	StartHour       int
	StartMinute     int
	DurationMinutes int
	Booker          string
	// DaysOfWeek uses 0 for Monday through 6 for Sunday.
	DaysOfWeek []int
	StartDate  time.Time
	EndDate    time.Time
}

type Service interface {
	EventsForDate(ctx context.Context, roomId int, day time.Time) ([]calendar.Event, error)
	EventsForWeek(ctx context.Context, roomId int, startDate time.Time) (map[string][]calendar.Event, error)
	EventsForMonth(ctx context.Context, roomId int, year int, month int) (map[string][]calendar.Event, error)
	// CurrentEvent returns nil when no event contains now.
	CurrentEvent(ctx context.Context, roomId int) (*calendar.Event, error)
	// NextEvent returns nil when no event starts after now today.
	NextEvent(ctx context.Context, roomId int) (*calendar.Event, error)
	CheckConflicts(ctx context.Context, roomId int, start, end time.Time) ([]calendar.Event, error)
	Book(ctx context.Context, roomId int, request BookingRequest) (*calendar.Event, error)
	BookRecurring(ctx context.Context, roomId int, request RecurringBookingRequest) (created int, skipped int, err error)
	Extend(ctx context.Context, roomId int, eventId string, minutes int) (*calendar.Event, error)
	End(ctx context.Context, roomId int, eventId string) error
	Cancel(ctx context.Context, roomId int, eventId string) error
}

// ServiceImpl holds no booking state of its own; all persistence lives
// behind the room service and the calendar sources.
type ServiceImpl struct {
	rooms     room.Service
	google    ExternalSource
	microsoft ExternalSource
	local     LocalSource
	clock     utils.Clock
}

func NewService(rooms room.Service, google ExternalSource, microsoft ExternalSource, local LocalSource) *ServiceImpl {
	return NewServiceWithClock(rooms, google, microsoft, local, utils.SystemClock{})
}

func NewServiceWithClock(rooms room.Service, google ExternalSource, microsoft ExternalSource, local LocalSource, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		rooms:     rooms,
		google:    google,
		microsoft: microsoft,
		local:     local,
		clock:     clock,
	}
}

func (s *ServiceImpl) getRoom(ctx context.Context, roomId int) (*room.Room, error) {
	r, err := s.rooms.Get(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to look up room %d: %w", roomId, err)
	}
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// calendarFor selects the calendar backend serving a room. Adding a
// provider means adding one case here and one adapter package.
func (s *ServiceImpl) calendarFor(ctx context.Context, r *room.Room) (calendar.Calendar, error) {
	switch r.Provider {
	case calendar.ProviderGoogle:
		return s.google.Calendar(ctx, r.CalendarId)
	case calendar.ProviderMicrosoft:
		return s.microsoft.Calendar(ctx, r.CalendarId)
	case calendar.ProviderLocal, "":
		return s.local.Calendar(r.Id), nil
	default:
		return nil, fmt.Errorf("%w: unknown calendar provider %q", ErrInvalidArgument, r.Provider)
	}
}

// EventsForDate is the single read path. Any source failure degrades to
// an empty day rather than an error, so a broken calendar connection
// shows "no events" instead of breaking the display.
func (s *ServiceImpl) EventsForDate(ctx context.Context, roomId int, day time.Time) ([]calendar.Event, error) {
	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return nil, err
	}

	cal, err := s.calendarFor(ctx, r)
	if err != nil {
		log.Warnf("calendar for room %d (%s) unavailable: %v", r.Id, r.Provider, err)
		return []calendar.Event{}, nil
	}

	events, err := cal.ListEvents(ctx, day.UTC())
	if err != nil {
		log.Warnf("failed to list events for room %d on %s: %v", r.Id, day.Format("2006-01-02"), err)
		return []calendar.Event{}, nil
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

func (s *ServiceImpl) EventsForWeek(ctx context.Context, roomId int, startDate time.Time) (map[string][]calendar.Event, error) {
	week := make(map[string][]calendar.Event, 7)
	for i := 0; i < 7; i++ {
		day := startDate.UTC().AddDate(0, 0, i)
		events, err := s.EventsForDate(ctx, roomId, day)
		if err != nil {
			return nil, err
		}
		week[day.Format("2006-01-02")] = events
	}
	return week, nil
}

func (s *ServiceImpl) EventsForMonth(ctx context.Context, roomId int, year int, month int) (map[string][]calendar.Event, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12, got %d", ErrInvalidArgument, month)
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	days := make(map[string][]calendar.Event)
	for day := first; day.Month() == time.Month(month); day = day.AddDate(0, 0, 1) {
		events, err := s.EventsForDate(ctx, roomId, day)
		if err != nil {
			return nil, err
		}
		days[day.Format("2006-01-02")] = events
	}
	return days, nil
}

func (s *ServiceImpl) CurrentEvent(ctx context.Context, roomId int) (*calendar.Event, error) {
	now := s.clock.Now().UTC()
	events, err := s.EventsForDate(ctx, roomId, now)
	if err != nil {
		return nil, err
	}
	// Inclusive on both ends: a meeting ending exactly now still
	// occupies the room.
	for _, ev := range events {
		if !now.Before(ev.StartTime) && !now.After(ev.EndTime) {
			event := ev
			return &event, nil
		}
	}
	return nil, nil
}

func (s *ServiceImpl) NextEvent(ctx context.Context, roomId int) (*calendar.Event, error) {
	now := s.clock.Now().UTC()
	events, err := s.EventsForDate(ctx, roomId, now)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if ev.StartTime.After(now) {
			event := ev
			return &event, nil
		}
	}
	return nil, nil
}

// CheckConflicts returns every event of start's day overlapping the
// half-open interval [start, end). Touching intervals do not conflict.
func (s *ServiceImpl) CheckConflicts(ctx context.Context, roomId int, start, end time.Time) ([]calendar.Event, error) {
	events, err := s.EventsForDate(ctx, roomId, start)
	if err != nil {
		return nil, err
	}

	conflicts := make([]calendar.Event, 0)
	for _, ev := range events {
		if start.Before(ev.EndTime) && end.After(ev.StartTime) {
			conflicts = append(conflicts, ev)
		}
	}
	return conflicts, nil
}

// Book checks for conflicts and creates the event. The check and the
// create are not atomic: two concurrent bookers racing for the same
// slot may both pass the check, and only the provider's own
// consistency decides the outcome.
func (s *ServiceImpl) Book(ctx context.Context, roomId int, request BookingRequest) (*calendar.Event, error) {
	if !request.StartTime.Before(request.EndTime) {
		return nil, fmt.Errorf("%w: booking must start before it ends", ErrInvalidArgument)
	}

	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return nil, err
	}

	conflicts, err := s.CheckConflicts(ctx, roomId, request.StartTime, request.EndTime)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{Event: conflicts[0]}
	}

	cal, err := s.calendarFor(ctx, r)
	if err != nil {
		return nil, err
	}
	return cal.CreateEvent(ctx, request.Title, request.StartTime.UTC(), request.EndTime.UTC(), request.Booker)
}

// BookRecurring creates one event per qualifying date, checking
// conflicts per instance. The loop is sequential and not transactional:
// a failure partway through leaves earlier instances committed, and the
// returned counts are the only account of partial completion.
func (s *ServiceImpl) BookRecurring(ctx context.Context, roomId int, request RecurringBookingRequest) (int, int, error) {
	if err := validateRecurring(request); err != nil {
		return 0, 0, err
	}

	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return 0, 0, err
	}
	cal, err := s.calendarFor(ctx, r)
	if err != nil {
		return 0, 0, err
	}

	wanted := make(map[int]bool, len(request.DaysOfWeek))
	for _, day := range request.DaysOfWeek {
		wanted[day] = true
	}

	created, skipped := 0, 0
	startDate := request.StartDate.UTC()
	endDate := request.EndDate.UTC()
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		if !wanted[mondayWeekday(day)] {
			continue
		}

		start := time.Date(day.Year(), day.Month(), day.Day(),
			request.StartHour, request.StartMinute, 0, 0, time.UTC)
		end := start.Add(time.Duration(request.DurationMinutes) * time.Minute)

		conflicts, err := s.CheckConflicts(ctx, roomId, start, end)
		if err != nil {
			return created, skipped, err
		}
		if len(conflicts) > 0 {
			log.Debugf("skipping recurring instance on %s for room %d: conflicts with %q",
				day.Format("2006-01-02"), roomId, conflicts[0].Title)
			skipped++
			continue
		}

		if _, err := cal.CreateEvent(ctx, request.Title, start, end, request.Booker); err != nil {
			return created, skipped, err
		}
		created++
	}
	return created, skipped, nil
}

func validateRecurring(request RecurringBookingRequest) error {
	if request.StartHour < 0 || request.StartHour > 23 || request.StartMinute < 0 || request.StartMinute > 59 {
		return fmt.Errorf("%w: invalid start time %02d:%02d", ErrInvalidArgument, request.StartHour, request.StartMinute)
	}
	if request.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidArgument)
	}
	if len(request.DaysOfWeek) == 0 {
		return fmt.Errorf("%w: at least one day of week is required", ErrInvalidArgument)
	}
	for _, day := range request.DaysOfWeek {
		if day < 0 || day > 6 {
			return fmt.Errorf("%w: day of week must be between 0 (Monday) and 6 (Sunday), got %d", ErrInvalidArgument, day)
		}
	}
	if request.EndDate.Before(request.StartDate) {
		return fmt.Errorf("%w: end date must not precede start date", ErrInvalidArgument)
	}
	return nil
}

// mondayWeekday maps time.Weekday (Sunday=0) to the 0=Monday convention
// used by recurring bookings.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func (s *ServiceImpl) Extend(ctx context.Context, roomId int, eventId string, minutes int) (*calendar.Event, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: extension must be a positive number of minutes", ErrInvalidArgument)
	}
	cal, err := s.roomCalendar(ctx, roomId)
	if err != nil {
		return nil, err
	}
	return cal.ExtendEvent(ctx, eventId, minutes)
}

func (s *ServiceImpl) End(ctx context.Context, roomId int, eventId string) error {
	cal, err := s.roomCalendar(ctx, roomId)
	if err != nil {
		return err
	}
	return cal.EndEvent(ctx, eventId)
}

// Cancel is idempotent: deleting an event that is already gone is a
// success, not a failure.
func (s *ServiceImpl) Cancel(ctx context.Context, roomId int, eventId string) error {
	cal, err := s.roomCalendar(ctx, roomId)
	if err != nil {
		return err
	}
	if err := cal.DeleteEvent(ctx, eventId); err != nil {
		if errors.Is(err, calendar.ErrEventNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (s *ServiceImpl) roomCalendar(ctx context.Context, roomId int) (calendar.Calendar, error) {
	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return nil, err
	}
	return s.calendarFor(ctx, r)
}
