package microsoft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/roomdesk/roomdesk/internal/utils"
	"github.com/roomdesk/roomdesk/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

// Graph serializes event times as wall-clock strings with a separate
// time zone name; all requests ask for UTC explicitly.
const graphTimeLayout = "2006-01-02T15:04:05.9999999"

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphEvent struct {
	Id        string         `json:"id,omitempty"`
	Subject   string         `json:"subject,omitempty"`
	Body      *graphItemBody `json:"body,omitempty"`
	Start     *graphDateTime `json:"start,omitempty"`
	End       *graphDateTime `json:"end,omitempty"`
	Organizer *struct {
		EmailAddress struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"organizer,omitempty"`
}

// Calendar adapts one Microsoft 365 calendar to the calendar contract
// through the Graph REST API.
type Calendar struct {
	client      *http.Client
	baseURL     string
	accessToken string
	calendarId  string
	clock       utils.Clock
}

func (c *Calendar) ListEvents(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("start/dateTime ge '%s' and start/dateTime lt '%s'",
		dayStart.Format("2006-01-02T15:04:05"), dayEnd.Format("2006-01-02T15:04:05")))
	params.Set("$orderby", "start/dateTime")
	params.Set("$top", "50")

	var response struct {
		Value []graphEvent `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, c.eventsURL()+"?"+params.Encode(), nil, &response); err != nil {
		log.Errorf("unable to retrieve events from Microsoft Calendar: %v", err)
		return nil, err
	}

	events := make([]calendar.Event, 0, len(response.Value))
	for _, item := range response.Value {
		events = append(events, graphEventToEvent(item))
	}
	return events, nil
}

func (c *Calendar) CreateEvent(ctx context.Context, title string, start, end time.Time, booker string) (*calendar.Event, error) {
	subject := title
	var body *graphItemBody
	if booker != "" {
		subject = fmt.Sprintf("%s (%s)", title, booker)
		body = &graphItemBody{ContentType: "text", Content: fmt.Sprintf("Booked by %s", booker)}
	}

	request := graphEvent{
		Subject: subject,
		Body:    body,
		Start:   &graphDateTime{DateTime: start.UTC().Format(graphTimeLayout), TimeZone: "UTC"},
		End:     &graphDateTime{DateTime: end.UTC().Format(graphTimeLayout), TimeZone: "UTC"},
	}

	var created graphEvent
	if err := c.do(ctx, http.MethodPost, c.eventsURL(), &request, &created); err != nil {
		log.Errorf("unable to create event in Microsoft Calendar: %v", err)
		return nil, err
	}

	event := graphEventToEvent(created)
	return &event, nil
}

func (c *Calendar) ExtendEvent(ctx context.Context, eventId string, minutes int) (*calendar.Event, error) {
	var current graphEvent
	if err := c.do(ctx, http.MethodGet, c.eventURL(eventId), nil, &current); err != nil {
		log.Errorf("unable to retrieve event %s from Microsoft Calendar: %v", eventId, err)
		return nil, err
	}

	currentEnd := parseGraphTime(current.End)
	update := graphEvent{
		End: &graphDateTime{
			DateTime: currentEnd.Add(time.Duration(minutes) * time.Minute).Format(graphTimeLayout),
			TimeZone: "UTC",
		},
	}

	var updated graphEvent
	if err := c.do(ctx, http.MethodPatch, c.eventURL(eventId), &update, &updated); err != nil {
		log.Errorf("unable to extend event %s in Microsoft Calendar: %v", eventId, err)
		return nil, err
	}

	event := graphEventToEvent(updated)
	return &event, nil
}

func (c *Calendar) EndEvent(ctx context.Context, eventId string) error {
	update := graphEvent{
		End: &graphDateTime{
			DateTime: c.clock.Now().UTC().Format(graphTimeLayout),
			TimeZone: "UTC",
		},
	}
	if err := c.do(ctx, http.MethodPatch, c.eventURL(eventId), &update, nil); err != nil {
		log.Errorf("unable to end event %s in Microsoft Calendar: %v", eventId, err)
		return err
	}
	return nil
}

func (c *Calendar) DeleteEvent(ctx context.Context, eventId string) error {
	if err := c.do(ctx, http.MethodDelete, c.eventURL(eventId), nil, nil); err != nil {
		log.Errorf("unable to delete event %s from Microsoft Calendar: %v", eventId, err)
		return err
	}
	return nil
}

func (c *Calendar) eventsURL() string {
	if c.calendarId != "" {
		return fmt.Sprintf("%s/me/calendars/%s/events", c.baseURL, c.calendarId)
	}
	return c.baseURL + "/me/calendar/events"
}

func (c *Calendar) eventURL(eventId string) string {
	if c.calendarId != "" {
		return fmt.Sprintf("%s/me/calendars/%s/events/%s", c.baseURL, c.calendarId, eventId)
	}
	return fmt.Sprintf("%s/me/calendar/events/%s", c.baseURL, eventId)
}

// do executes one Graph request with the Bearer credential, decoding the
// JSON response into out when it is non-nil.
func (c *Calendar) do(ctx context.Context, method, requestURL string, in, out any) error {
	var requestBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		requestBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, requestBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", calendar.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkGraphStatus(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", calendar.ErrProviderRejected, err)
		}
	}
	return nil
}

func checkGraphStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	responseBody, _ := io.ReadAll(resp.Body)
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return calendar.ErrEventNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: Microsoft Graph returned status %d: %s", calendar.ErrProviderUnavailable, resp.StatusCode, responseBody)
	default:
		return fmt.Errorf("%w: Microsoft Graph returned status %d: %s", calendar.ErrProviderRejected, resp.StatusCode, responseBody)
	}
}

func graphEventToEvent(item graphEvent) calendar.Event {
	title := item.Subject
	if title == "" {
		title = "Busy"
	}
	organizer := ""
	if item.Organizer != nil {
		organizer = item.Organizer.EmailAddress.Address
	}
	return calendar.Event{
		ID:        item.Id,
		Title:     title,
		StartTime: parseGraphTime(item.Start),
		EndTime:   parseGraphTime(item.End),
		Organizer: organizer,
		Provider:  calendar.ProviderMicrosoft,
	}
}

func parseGraphTime(dt *graphDateTime) time.Time {
	if dt == nil || dt.DateTime == "" {
		return time.Time{}
	}
	t, err := time.Parse(graphTimeLayout, dt.DateTime)
	if err != nil {
		log.Warnf("unparseable Microsoft event time %q: %v", dt.DateTime, err)
		return time.Time{}
	}
	return t.UTC()
}
