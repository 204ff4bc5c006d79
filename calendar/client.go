package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Service is the external calendar used for confirmed bookings. Both
// operations are best-effort from the caller's point of view: failures
// are logged and never roll back a booking.
type Service interface {
	// CreateEvent creates a calendar event and returns its opaque ID.
	CreateEvent(ctx context.Context, ev Event) (string, error)

	// DeleteEvent removes a previously created event.
	DeleteEvent(ctx context.Context, eventID string) error
}

// Event is the payload for a calendar entry.
type Event struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	TimeZone    string
	ColorID     string
}

// Client talks to a calendar REST API (Google Calendar style v3 surface).
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	calendarID string
	token      string
	Debug      bool
}

// NewClient creates a calendar API client. baseURL is the API root,
// calendarID selects the shared hall calendar, token is a bearer token.
func NewClient(baseURL, calendarID, token string, debug bool) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		limiter:    rate.NewLimiter(5, 5),
		baseURL:    baseURL,
		calendarID: calendarID,
		token:      token,
		Debug:      debug,
	}
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type eventBody struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
	ColorID     string    `json:"colorId"`
}

type eventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

// CreateEvent creates a calendar event and returns the assigned event ID.
func (c *Client) CreateEvent(ctx context.Context, ev Event) (string, error) {
	body := eventBody{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       eventTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:         eventTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone},
		ColorID:     ev.ColorID,
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(c.calendarID))
	var resp eventResponse
	if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("calendar returned an event without an ID")
	}
	if c.Debug {
		log.Printf("Calendar event created: %s (%s)", resp.ID, resp.HTMLLink)
	}
	return resp.ID, nil
}

// DeleteEvent removes the event with the given ID.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, url.PathEscape(c.calendarID), url.PathEscape(eventID))
	return c.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}

// doRequest handles the common logic for calendar API calls.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, target any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error (%s %s): %w", method, endpoint, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	// Correlation ID for tracing calendar calls in the API's logs.
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.Debug {
		log.Printf("Calendar request: %s %s", method, endpoint)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("request context error (%s %s): %w", method, endpoint, ctxErr)
		}
		return fmt.Errorf("failed to execute request (%s %s): %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d for %s %s: %s", resp.StatusCode, method, endpoint, snippet)
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response (%s %s): %w", method, endpoint, err)
	}
	return nil
}

// Disabled is a Service used when no calendar is configured. Creates
// report success with an empty event ID so bookings proceed without a
// calendar reference.
type Disabled struct{}

func (Disabled) CreateEvent(ctx context.Context, ev Event) (string, error) {
	log.Printf("Calendar disabled, skipping event for %s", ev.Location)
	return "", nil
}

func (Disabled) DeleteEvent(ctx context.Context, eventID string) error {
	return nil
}
