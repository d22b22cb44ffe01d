package scheduler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/roomdesk/roomdesk/internal/rest"
	"github.com/roomdesk/roomdesk/internal/utils"
	"github.com/roomdesk/roomdesk/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

const defaultBookingMinutes = 30
const defaultRecurringHorizonDays = 90

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewHandler(service Service) *Handler {
	return NewHandlerWithClock(service, utils.SystemClock{})
}

func NewHandlerWithClock(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

type EventDTO struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Organizer string    `json:"organizer,omitempty"`
	Provider  string    `json:"provider"`
}

type DayScheduleDTO struct {
	Date         string     `json:"date"`
	ServerTime   time.Time  `json:"serverTime"`
	Events       []EventDTO `json:"events"`
	CurrentEvent *EventDTO  `json:"currentEvent"`
	NextEvent    *EventDTO  `json:"nextEvent"`
	IsAvailable  bool       `json:"isAvailable"`
}

type BookingDTO struct {
	Title     string `json:"title"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	Booker    string `json:"booker,omitempty"`
}

type RecurringBookingDTO struct {
	Title           string `json:"title"`
	StartHour       int    `json:"startHour"`
	StartMinute     int    `json:"startMinute"`
	DurationMinutes int    `json:"durationMinutes"`
	Booker          string `json:"booker,omitempty"`
	DaysOfWeek      string `json:"daysOfWeek"`
	StartDate       string `json:"startDate,omitempty"`
	EndDate         string `json:"endDate,omitempty"`
}

type RecurringResultDTO struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// GetDaySchedule returns the events of one day together with the
// display state: current event, next event and availability.
func (h *Handler) GetDaySchedule(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	roomId, ok := roomIdFromRequest(w, r)
	if !ok {
		return
	}

	now := h.clock.Now().UTC()
	day := now
	if dateParam := r.URL.Query().Get("date"); dateParam != "" {
		parsed, err := time.Parse("2006-01-02", dateParam)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid date, expected YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	events, err := h.service.EventsForDate(r.Context(), roomId, day)
	if err != nil {
		h.writeError(w, err)
		return
	}
	current, err := h.service.CurrentEvent(r.Context(), roomId)
	if err != nil {
		h.writeError(w, err)
		return
	}
	next, err := h.service.NextEvent(r.Context(), roomId)
	if err != nil {
		h.writeError(w, err)
		return
	}

	dto := DayScheduleDTO{
		Date:         day.Format("2006-01-02"),
		ServerTime:   now,
		Events:       eventsToDTOs(events),
		CurrentEvent: eventToDTOPtr(current),
		NextEvent:    eventToDTOPtr(next),
		IsAvailable:  current == nil,
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) GetWeekSchedule(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	roomId, ok := roomIdFromRequest(w, r)
	if !ok {
		return
	}

	start := h.clock.Now().UTC()
	if startParam := r.URL.Query().Get("start"); startParam != "" {
		parsed, err := time.Parse("2006-01-02", startParam)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid start date, expected YYYY-MM-DD"})
			return
		}
		start = parsed
	}

	week, err := h.service.EventsForWeek(r.Context(), roomId, start)
	if err != nil {
		h.writeError(w, err)
		return
	}

	days := make(map[string][]EventDTO, len(week))
	for date, events := range week {
		days[date] = eventsToDTOs(events)
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(days); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) GetMonthSchedule(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	roomId, ok := roomIdFromRequest(w, r)
	if !ok {
		return
	}

	now := h.clock.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if yearParam := r.URL.Query().Get("year"); yearParam != "" {
		parsed, err := strconv.Atoi(yearParam)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid year"})
			return
		}
		year = parsed
	}
	if monthParam := r.URL.Query().Get("month"); monthParam != "" {
		parsed, err := strconv.Atoi(monthParam)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid month"})
			return
		}
		month = parsed
	}

	monthEvents, err := h.service.EventsForMonth(r.Context(), roomId, year, month)
	if err != nil {
		h.writeError(w, err)
		return
	}

	days := make(map[string][]EventDTO, len(monthEvents))
	for date, events := range monthEvents {
		days[date] = eventsToDTOs(events)
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(days); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// BookRoom creates a booking. When no start time is given the booking
// starts now ("book now"), defaults to 30 minutes and is refused while
// a meeting is in progress.
func (h *Handler) BookRoom(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	roomId, ok := roomIdFromRequest(w, r)
	if !ok {
		return
	}

	var dto BookingDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if dto.Title == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Booking title is required"})
		return
	}

	request := BookingRequest{Title: dto.Title, Booker: dto.Booker}
	bookNow := dto.StartTime == ""
	if bookNow {
		request.StartTime = h.clock.Now().UTC()
	} else {
		parsed, err := time.Parse(time.RFC3339, dto.StartTime)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid start time, expected RFC 3339"})
			return
		}
		request.StartTime = parsed.UTC()
	}
	if dto.EndTime == "" {
		request.EndTime = request.StartTime.Add(defaultBookingMinutes * time.Minute)
	} else {
		parsed, err := time.Parse(time.RFC3339, dto.EndTime)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid end time, expected RFC 3339"})
			return
		}
		request.EndTime = parsed.UTC()
	}

	if bookNow {
		current, err := h.service.CurrentEvent(r.Context(), roomId)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if current != nil {
			h.writeError(w, &ConflictError{Event: *current})
			return
		}
	}

	event, err := h.service.Book(r.Context(), roomId, request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(eventToDTO(*event)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) BookRecurring(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	roomId, ok := roomIdFromRequest(w, r)
	if !ok {
		return
	}

	var dto RecurringBookingDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if dto.Title == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Booking title is required"})
		return
	}

	days, err := parseDaysOfWeek(dto.DaysOfWeek)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
		return
	}

	// Default to today as a calendar date; keeping the time of day would
	// push the date comparisons in the series loop past midnight bounds.
	now := h.clock.Now().UTC()
	startDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if dto.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", dto.StartDate)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid start date, expected YYYY-MM-DD"})
			return
		}
		startDate = parsed
	}
	endDate := startDate.AddDate(0, 0, defaultRecurringHorizonDays)
	if dto.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", dto.EndDate)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid end date, expected YYYY-MM-DD"})
			return
		}
		endDate = parsed
	}

	request := RecurringBookingRequest{
		Title:           dto.Title,
		StartHour:       dto.StartHour,
		StartMinute:     dto.StartMinute,
		DurationMinutes: dto.DurationMinutes,
		Booker:          dto.Booker,
		DaysOfWeek:      days,
		StartDate:       startDate,
		EndDate:         endDate,
	}

	created, skipped, err := h.service.BookRecurring(r.Context(), roomId, request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(RecurringResultDTO{Created: created, Skipped: skipped}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ExtendCurrentMeeting extends the meeting in progress.
func (h *Handler) ExtendCurrentMeeting(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	roomId, ok := roomIdFromRequest(w, r)
	if !ok {
		return
	}

	var dto struct {
		Minutes int `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if dto.Minutes <= 0 {
		dto.Minutes = 15
	}

	current, err := h.service.CurrentEvent(r.Context(), roomId)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if current == nil {
		h.writeError(w, ErrNoActiveMeeting)
		return
	}

	event, err := h.service.Extend(r.Context(), roomId, current.ID, dto.Minutes)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(eventToDTO(*event)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// EndCurrentMeeting ends the meeting in progress, freeing the room.
func (h *Handler) EndCurrentMeeting(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	roomId, ok := roomIdFromRequest(w, r)
	if !ok {
		return
	}

	current, err := h.service.CurrentEvent(r.Context(), roomId)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if current == nil {
		h.writeError(w, ErrNoActiveMeeting)
		return
	}

	if err := h.service.End(r.Context(), roomId, current.ID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	roomId, ok := roomIdFromRequest(w, r)
	if !ok {
		return
	}
	eventId := mux.Vars(r)["eventId"]

	if err := h.service.Cancel(r.Context(), roomId, eventId); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error:   "Time slot is already booked",
			Details: conflict.Event.Title,
		})
	case errors.Is(err, ErrRoomNotFound):
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Room not found"})
	case errors.Is(err, ErrNoActiveMeeting):
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "No meeting is currently in progress"})
	case errors.Is(err, calendar.ErrEventNotFound):
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Event not found"})
	case errors.Is(err, ErrInvalidArgument):
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
	case errors.Is(err, calendar.ErrProviderUnavailable):
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Calendar provider is unavailable"})
	case errors.Is(err, calendar.ErrProviderRejected):
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Calendar provider rejected the request"})
	default:
		log.Errorf("scheduling request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func roomIdFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	roomId, err := strconv.Atoi(mux.Vars(r)["roomId"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid room id"})
		return 0, false
	}
	return roomId, true
}

// parseDaysOfWeek parses a comma-separated day list, 0=Monday.
func parseDaysOfWeek(value string) ([]int, error) {
	if value == "" {
		return nil, errors.New("daysOfWeek is required, e.g. \"0,2\" for Monday and Wednesday")
	}
	parts := strings.Split(value, ",")
	days := make([]int, 0, len(parts))
	for _, part := range parts {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.New("daysOfWeek must be a comma-separated list of numbers between 0 (Monday) and 6 (Sunday)")
		}
		days = append(days, day)
	}
	return days, nil
}

func eventToDTO(event calendar.Event) EventDTO {
	return EventDTO{
		Id:        event.ID,
		Title:     event.Title,
		StartTime: event.StartTime,
		EndTime:   event.EndTime,
		Organizer: event.Organizer,
		Provider:  event.Provider,
	}
}

func eventToDTOPtr(event *calendar.Event) *EventDTO {
	if event == nil {
		return nil
	}
	dto := eventToDTO(*event)
	return &dto
}

func eventsToDTOs(events []calendar.Event) []EventDTO {
	dtos := make([]EventDTO, 0, len(events))
	for _, event := range events {
		dtos = append(dtos, eventToDTO(event))
	}
	return dtos
}
