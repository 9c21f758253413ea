package bmon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the readings API of the AHFC BMON site.
const DefaultBaseURL = "https://bms.ahfc.us/api/v1/readings/"

var (
	// ErrBadShape is returned when a response decodes but is missing the
	// expected status/data/readings fields.
	ErrBadShape = errors.New("bmon: response missing expected fields")

	errCircuitOpen = errors.New("bmon: circuit breaker open")
	errUnexpected  = errors.New("bmon: unexpected status code")
)

// RemoteError is returned when the BMON server answers with a
// non-success status. It carries the server's opaque error payload.
type RemoteError struct {
	Payload json.RawMessage
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bmon: remote error: %s", string(e.Payload))
}

// Reading is a single hourly-averaged sensor value. Values are degrees
// Fahrenheit for temperature sensors.
type Reading struct {
	Timestamp time.Time
	Value     float64
}

// Client fetches sensor readings from a BMON server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
}

// NewClient creates a Client for the given readings API base URL
// (e.g. "https://bms.ahfc.us/api/v1/readings/").
func NewClient(client *http.Client, baseURL string) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bmon",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: client,
		circuit:    cb,
	}
}

// Readings returns hourly-averaged readings for sensorID starting at
// start (date precision), through the end of available data. A single
// GET, no retries.
func (c *Client) Readings(ctx context.Context, sensorID string, start time.Time) ([]Reading, error) {
	values := url.Values{}
	values.Set("start_ts", start.UTC().Format("2006-01-02"))
	values.Set("averaging", "1H")

	u := fmt.Sprintf("%s%s/?%s", c.baseURL, url.PathEscape(sensorID), values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, execErr := c.httpClient.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, fmt.Errorf("bmon: request %s: %w", sensorID, err)
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("bmon: unexpected result type from circuit breaker")
	}
	defer resp.Body.Close()

	var payload struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("bmon: decode response: %w", err)
	}
	if payload.Status == "" || len(payload.Data) == 0 {
		return nil, ErrBadShape
	}
	if payload.Status != "success" {
		return nil, &RemoteError{Payload: payload.Data}
	}

	var data struct {
		Readings []json.RawMessage `json:"readings"`
	}
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadShape, err)
	}
	if data.Readings == nil {
		return nil, ErrBadShape
	}

	readings := make([]Reading, 0, len(data.Readings))
	for _, raw := range data.Readings {
		r, present, err := parseReading(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadShape, err)
		}
		if !present {
			// hour with no data
			continue
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// parseReading decodes one [timestamp, value] pair. The timestamp may be
// epoch seconds or a date string; a null value marks an absent hour.
func parseReading(raw json.RawMessage) (Reading, bool, error) {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return Reading{}, false, err
	}

	ts, err := parseTimestamp(pair[0])
	if err != nil {
		return Reading{}, false, err
	}

	var value *float64
	if err := json.Unmarshal(pair[1], &value); err != nil {
		return Reading{}, false, err
	}
	if value == nil {
		return Reading{}, false, nil
	}
	return Reading{Timestamp: ts, Value: *value}, true, nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, perr := time.Parse(layout, s); perr == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}

	var epoch float64
	if err := json.Unmarshal(raw, &epoch); err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %s", string(raw))
	}
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC(), nil
}
