package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/roomdesk/roomdesk/internal/utils"
	"github.com/roomdesk/roomdesk/pkg/calendar"
	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// Calendar adapts one Google calendar to the calendar contract.
type Calendar struct {
	service    *gcal.Service
	calendarId string
	clock      utils.Clock
}

func newGoogleCalendar(service *gcal.Service, calendarId string, clock utils.Clock) *Calendar {
	if calendarId == "" {
		calendarId = "primary"
	}
	return &Calendar{service: service, calendarId: calendarId, clock: clock}
}

func (c *Calendar) ListEvents(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	googleEvents, err := c.service.Events.List(c.calendarId).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		log.Errorf("unable to retrieve events from Google Calendar: %v", err)
		return nil, wrapGoogleError(err)
	}

	events := make([]calendar.Event, 0, len(googleEvents.Items))
	for _, item := range googleEvents.Items {
		events = append(events, googleEventToEvent(item))
	}
	return events, nil
}

func (c *Calendar) CreateEvent(ctx context.Context, title string, start, end time.Time, booker string) (*calendar.Event, error) {
	summary := title
	description := ""
	if booker != "" {
		summary = fmt.Sprintf("%s (%s)", title, booker)
		description = fmt.Sprintf("Booked by %s", booker)
	}

	result, err := c.service.Events.Insert(c.calendarId, &gcal.Event{
		Summary:     summary,
		Description: description,
		Start: &gcal.EventDateTime{
			DateTime: start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: end.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}).Context(ctx).Do()
	if err != nil {
		log.Errorf("unable to insert event in Google Calendar: %v", err)
		return nil, wrapGoogleError(err)
	}

	event := googleEventToEvent(result)
	return &event, nil
}

func (c *Calendar) ExtendEvent(ctx context.Context, eventId string, minutes int) (*calendar.Event, error) {
	googleEvent, err := c.service.Events.Get(c.calendarId, eventId).Context(ctx).Do()
	if err != nil {
		log.Errorf("unable to retrieve event %s from Google Calendar: %v", eventId, err)
		return nil, wrapGoogleError(err)
	}

	currentEnd := parseGoogleTime(googleEvent.End)
	googleEvent.End = &gcal.EventDateTime{
		DateTime: currentEnd.Add(time.Duration(minutes) * time.Minute).Format(time.RFC3339),
		TimeZone: "UTC",
	}

	result, err := c.service.Events.Update(c.calendarId, eventId, googleEvent).Context(ctx).Do()
	if err != nil {
		log.Errorf("unable to update event %s in Google Calendar: %v", eventId, err)
		return nil, wrapGoogleError(err)
	}

	event := googleEventToEvent(result)
	return &event, nil
}

func (c *Calendar) EndEvent(ctx context.Context, eventId string) error {
	googleEvent, err := c.service.Events.Get(c.calendarId, eventId).Context(ctx).Do()
	if err != nil {
		log.Errorf("unable to retrieve event %s from Google Calendar: %v", eventId, err)
		return wrapGoogleError(err)
	}

	googleEvent.End = &gcal.EventDateTime{
		DateTime: c.clock.Now().UTC().Format(time.RFC3339),
		TimeZone: "UTC",
	}

	if _, err := c.service.Events.Update(c.calendarId, eventId, googleEvent).Context(ctx).Do(); err != nil {
		log.Errorf("unable to update event %s in Google Calendar: %v", eventId, err)
		return wrapGoogleError(err)
	}
	return nil
}

func (c *Calendar) DeleteEvent(ctx context.Context, eventId string) error {
	if err := c.service.Events.Delete(c.calendarId, eventId).Context(ctx).Do(); err != nil {
		log.Errorf("unable to delete event %s from Google Calendar: %v", eventId, err)
		return wrapGoogleError(err)
	}
	return nil
}

func googleEventToEvent(item *gcal.Event) calendar.Event {
	title := item.Summary
	if title == "" {
		title = "Busy"
	}
	organizer := ""
	if item.Organizer != nil {
		organizer = item.Organizer.Email
	}
	return calendar.Event{
		ID:        item.Id,
		Title:     title,
		StartTime: parseGoogleTime(item.Start),
		EndTime:   parseGoogleTime(item.End),
		Organizer: organizer,
		Provider:  calendar.ProviderGoogle,
	}
}

// parseGoogleTime handles both timed events (dateTime) and all-day
// events (date).
func parseGoogleTime(dt *gcal.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			log.Warnf("unparseable Google event time %q: %v", dt.DateTime, err)
			return time.Time{}
		}
		return t.UTC()
	}
	t, err := time.Parse("2006-01-02", dt.Date)
	if err != nil {
		log.Warnf("unparseable Google event date %q: %v", dt.Date, err)
		return time.Time{}
	}
	return t.UTC()
}

func wrapGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound, http.StatusGone:
			return calendar.ErrEventNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", calendar.ErrProviderUnavailable, err)
		default:
			return fmt.Errorf("%w: %v", calendar.ErrProviderRejected, err)
		}
	}
	return fmt.Errorf("%w: %v", calendar.ErrProviderUnavailable, err)
}
