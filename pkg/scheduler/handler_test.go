package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/roomdesk/roomdesk/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*schedulerFixture, *mux.Router) {
	t.Helper()
	f := setupSchedulerTest(t)
	handler := NewHandlerWithClock(f.service, f.clock)

	r := mux.NewRouter()
	r.HandleFunc("/api/rooms/{roomId}/events", handler.GetDaySchedule).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}/events/week", handler.GetWeekSchedule).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}/events/month", handler.GetMonthSchedule).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}/bookings", handler.BookRoom).Methods("POST")
	r.HandleFunc("/api/rooms/{roomId}/bookings/recurring", handler.BookRecurring).Methods("POST")
	r.HandleFunc("/api/rooms/{roomId}/bookings/{eventId}", handler.CancelBooking).Methods("DELETE")
	r.HandleFunc("/api/rooms/{roomId}/meetings/current/extend", handler.ExtendCurrentMeeting).Methods("POST")
	r.HandleFunc("/api/rooms/{roomId}/meetings/current", handler.EndCurrentMeeting).Methods("DELETE")
	return f, r
}

func TestHandler_GetDaySchedule(t *testing.T) {
	t.Run("should return the day with availability state", func(t *testing.T) {
		// given: a meeting in progress and one later today
		f, router := setupHandlerTest(t)
		f.localCal.Events = []calendar.Event{
			{ID: "1", Title: "In progress", StartTime: at(11, 30), EndTime: at(12, 30), Provider: calendar.ProviderLocal},
			{ID: "2", Title: "Later", StartTime: at(15, 0), EndTime: at(16, 0), Provider: calendar.ProviderLocal},
		}

		// when
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/rooms/1/events?date=2024-01-10", nil))

		// then
		require.Equal(t, http.StatusOK, recorder.Code)
		var dto DayScheduleDTO
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &dto))
		assert.Equal(t, "2024-01-10", dto.Date)
		assert.Len(t, dto.Events, 2)
		require.NotNil(t, dto.CurrentEvent)
		assert.Equal(t, "In progress", dto.CurrentEvent.Title)
		require.NotNil(t, dto.NextEvent)
		assert.Equal(t, "Later", dto.NextEvent.Title)
		assert.False(t, dto.IsAvailable)
	})

	t.Run("should report an empty free day as available", func(t *testing.T) {
		_, router := setupHandlerTest(t)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/rooms/1/events", nil))

		require.Equal(t, http.StatusOK, recorder.Code)
		var dto DayScheduleDTO
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &dto))
		assert.Empty(t, dto.Events)
		assert.Nil(t, dto.CurrentEvent)
		assert.True(t, dto.IsAvailable)
	})

	t.Run("should reject a malformed date", func(t *testing.T) {
		_, router := setupHandlerTest(t)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/rooms/1/events?date=10.01.2024", nil))

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("should return 404 for an unknown room", func(t *testing.T) {
		_, router := setupHandlerTest(t)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/rooms/99/events", nil))

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestHandler_BookRoom(t *testing.T) {
	t.Run("should create a timed booking", func(t *testing.T) {
		// given
		_, router := setupHandlerTest(t)
		body := `{"title":"Planning","startTime":"2024-01-10T14:00:00Z","endTime":"2024-01-10T15:00:00Z","booker":"alice@example.com"}`

		// when
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/rooms/1/bookings", strings.NewReader(body)))

		// then
		require.Equal(t, http.StatusCreated, recorder.Code)
		var dto EventDTO
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &dto))
		assert.Equal(t, "Planning", dto.Title)
		assert.Equal(t, time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC), dto.StartTime)
	})

	t.Run("should return 409 naming the conflicting event", func(t *testing.T) {
		// given
		f, router := setupHandlerTest(t)
		f.localCal.Events = []calendar.Event{
			{ID: "1", Title: "Standup", StartTime: at(14, 0), EndTime: at(15, 0), Provider: calendar.ProviderLocal},
		}
		body := `{"title":"Planning","startTime":"2024-01-10T14:30:00Z","endTime":"2024-01-10T15:30:00Z"}`

		// when
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/rooms/1/bookings", strings.NewReader(body)))

		// then
		require.Equal(t, http.StatusConflict, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Standup")
	})

	t.Run("should book now for 30 minutes when no times are given", func(t *testing.T) {
		// given: clock fixed at 12:00
		_, router := setupHandlerTest(t)
		body := `{"title":"Ad hoc","booker":"bob@example.com"}`

		// when
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/rooms/1/bookings", strings.NewReader(body)))

		// then
		require.Equal(t, http.StatusCreated, recorder.Code)
		var dto EventDTO
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &dto))
		assert.Equal(t, at(12, 0), dto.StartTime)
		assert.Equal(t, at(12, 30), dto.EndTime)
	})

	t.Run("should refuse book now while a meeting is in progress", func(t *testing.T) {
		f, router := setupHandlerTest(t)
		f.localCal.Events = []calendar.Event{
			{ID: "1", Title: "Occupying", StartTime: at(11, 0), EndTime: at(13, 0), Provider: calendar.ProviderLocal},
		}

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/rooms/1/bookings", strings.NewReader(`{"title":"Ad hoc"}`)))

		require.Equal(t, http.StatusConflict, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Occupying")
	})

	t.Run("should reject a booking without a title", func(t *testing.T) {
		_, router := setupHandlerTest(t)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/rooms/1/bookings", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("should return 400 when start is after end", func(t *testing.T) {
		_, router := setupHandlerTest(t)
		body := `{"title":"Backwards","startTime":"2024-01-10T15:00:00Z","endTime":"2024-01-10T14:00:00Z"}`

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/rooms/1/bookings", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestHandler_BookRecurring(t *testing.T) {
	t.Run("should create the series and report counts", func(t *testing.T) {
		// given
		_, router := setupHandlerTest(t)
		body := `{"title":"Team sync","startHour":9,"startMinute":30,"durationMinutes":60,
			"daysOfWeek":"0,2","startDate":"2024-01-08","endDate":"2024-01-21"}`

		// when
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/rooms/1/bookings/recurring", strings.NewReader(body)))

		// then: 2 Mondays + 2 Wednesdays in the range
		require.Equal(t, http.StatusCreated, recorder.Code)
		var result RecurringResultDTO
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
		assert.Equal(t, 4, result.Created)
		assert.Equal(t, 0, result.Skipped)
	})

	t.Run("should include the end date when the start date is defaulted", func(t *testing.T) {
		// given: clock fixed mid-day on Wednesday Jan 10
		_, router := setupHandlerTest(t)
		body := `{"title":"Weekly sync","startHour":9,"startMinute":0,"durationMinutes":30,
			"daysOfWeek":"2","endDate":"2024-01-17"}`

		// when
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/rooms/1/bookings/recurring", strings.NewReader(body)))

		// then: both Wednesdays, Jan 10 and Jan 17, are created
		require.Equal(t, http.StatusCreated, recorder.Code)
		var result RecurringResultDTO
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
		assert.Equal(t, 2, result.Created)
		assert.Equal(t, 0, result.Skipped)
	})

	t.Run("should accept a series starting and ending today", func(t *testing.T) {
		_, router := setupHandlerTest(t)
		body := `{"title":"One-off","startHour":15,"startMinute":0,"durationMinutes":30,
			"daysOfWeek":"2","endDate":"2024-01-10"}`

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/rooms/1/bookings/recurring", strings.NewReader(body)))

		require.Equal(t, http.StatusCreated, recorder.Code)
		var result RecurringResultDTO
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
		assert.Equal(t, 1, result.Created)
	})

	t.Run("should reject a malformed day list", func(t *testing.T) {
		_, router := setupHandlerTest(t)
		body := `{"title":"Team sync","startHour":9,"durationMinutes":60,"daysOfWeek":"mon,wed","startDate":"2024-01-08"}`

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/rooms/1/bookings/recurring", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestHandler_CancelBooking(t *testing.T) {
	t.Run("should cancel an existing booking", func(t *testing.T) {
		// given
		f, router := setupHandlerTest(t)
		created, err := f.localCal.CreateEvent(context.Background(), "Doomed", at(14, 0), at(15, 0), "")
		require.NoError(t, err)

		// when
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("DELETE", "/api/rooms/1/bookings/"+created.ID, nil))

		// then
		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Empty(t, f.localCal.Events)
	})

	t.Run("should return 204 for an already-cancelled booking", func(t *testing.T) {
		_, router := setupHandlerTest(t)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("DELETE", "/api/rooms/1/bookings/missing", nil))

		assert.Equal(t, http.StatusNoContent, recorder.Code)
	})
}

func TestHandler_CurrentMeeting(t *testing.T) {
	t.Run("should extend the meeting in progress", func(t *testing.T) {
		// given
		f, router := setupHandlerTest(t)
		f.localCal.Events = []calendar.Event{
			{ID: "1", Title: "In progress", StartTime: at(11, 30), EndTime: at(12, 30), Provider: calendar.ProviderLocal},
		}

		// when
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/rooms/1/meetings/current/extend", strings.NewReader(`{"minutes":30}`)))

		// then
		require.Equal(t, http.StatusOK, recorder.Code)
		var dto EventDTO
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &dto))
		assert.Equal(t, at(13, 0), dto.EndTime)
	})

	t.Run("should end the meeting in progress", func(t *testing.T) {
		f, router := setupHandlerTest(t)
		f.localCal.NowFunc = func() time.Time { return at(12, 0) }
		f.localCal.Events = []calendar.Event{
			{ID: "1", Title: "In progress", StartTime: at(11, 30), EndTime: at(12, 30), Provider: calendar.ProviderLocal},
		}

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("DELETE", "/api/rooms/1/meetings/current", nil))

		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Equal(t, at(12, 0), f.localCal.Events[0].EndTime)
	})

	t.Run("should return 404 when the room is free", func(t *testing.T) {
		_, router := setupHandlerTest(t)

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest("DELETE", "/api/rooms/1/meetings/current", nil))

		assert.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "No meeting is currently in progress")
	})
}
