// Package iem fetches hourly ASOS observations from the Iowa Environmental
// Mesonet request service and normalizes them into domain observations.
package iem

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Automynx/Cooling-The-Cloud/internal/retry"
	weather "github.com/Automynx/Cooling-The-Cloud/internal/weather/domain"
)

const (
	// DefaultBaseURL is the IEM ASOS request endpoint.
	DefaultBaseURL = "https://mesonet.agron.iastate.edu/cgi-bin/request/asos.py"

	nullMarker      = "null"
	timestampColumn = "valid"
)

// columnMapping renames service field names to the canonical schema names.
var columnMapping = map[string]string{
	"tmpf": "temperature_f",
	"relh": "humidity_percent",
}

// Client fetches one date range of observations per request.
type Client struct {
	baseURL string
	station string
	fields  []string
	client  *http.Client
	policy  *retry.Policy
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithBaseURL overrides the service base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// NewClient constructs a client for one station and field list.
func NewClient(station string, fields []string, policy *retry.Policy, opts ...Option) (*Client, error) {
	if station == "" {
		return nil, weather.ErrEmptyStation
	}
	if len(fields) == 0 {
		return nil, errors.New("iem: no data fields requested")
	}
	if policy == nil {
		return nil, errors.New("iem: nil retry policy")
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		station: station,
		fields:  fields,
		client:  &http.Client{Timeout: 30 * time.Second},
		policy:  policy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BuildURL assembles the request URL for an inclusive calendar range.
func (c *Client) BuildURL(start, end time.Time) string {
	params := url.Values{}
	params.Set("station", c.station)
	for _, field := range c.fields {
		params.Add("data", field)
	}
	params.Set("year1", strconv.Itoa(start.Year()))
	params.Set("month1", strconv.Itoa(int(start.Month())))
	params.Set("day1", strconv.Itoa(start.Day()))
	params.Set("year2", strconv.Itoa(end.Year()))
	params.Set("month2", strconv.Itoa(int(end.Month())))
	params.Set("day2", strconv.Itoa(end.Day()))
	params.Set("tz", "UTC")
	params.Set("format", "onlycomma")
	params.Set("latlon", "no")
	params.Set("elev", "no")
	params.Set("missing", nullMarker)
	params.Set("trace", nullMarker)
	params.Set("direct", "no")
	params.Set("report_type", "2")
	return c.baseURL + "?" + params.Encode()
}

// Fetch retrieves and normalizes observations for [start, end]. A successful
// response with no rows returns (nil, nil); transport failures are retried
// per the policy and reported after the attempt limit.
func (c *Client) Fetch(ctx context.Context, start, end time.Time) ([]weather.Observation, error) {
	reqURL := c.BuildURL(start, end)

	var body []byte
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("iem: request failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("iem: unexpected status %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("iem: read body: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	return c.parseCSV(string(body))
}

// parseCSV normalizes the service's CSV payload: the valid column becomes a
// UTC timestamp, service field names are mapped to canonical names, null
// markers become absent values, and all-null rows are dropped.
func (c *Client) parseCSV(payload string) ([]weather.Observation, error) {
	reader := csv.NewReader(strings.NewReader(payload))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("iem: read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	validIdx, ok := columns[timestampColumn]
	if !ok {
		return nil, fmt.Errorf("iem: no %q timestamp column in response", timestampColumn)
	}

	var observations []weather.Observation
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iem: read row: %w", err)
		}

		ts, err := parseTimestamp(record[validIdx])
		if err != nil {
			return nil, fmt.Errorf("iem: parse timestamp %q: %w", record[validIdx], err)
		}

		obs := weather.Observation{Station: c.station, Timestamp: ts}
		for _, field := range c.fields {
			idx, ok := columns[field]
			if !ok || idx >= len(record) {
				continue
			}
			value := parseOptionalFloat(record[idx])
			switch columnMapping[field] {
			case "temperature_f":
				obs.TemperatureF = value
			case "humidity_percent":
				obs.HumidityPercent = value
			}
		}
		if obs.Empty() {
			continue
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05", time.RFC3339} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized layout")
}

func parseOptionalFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == nullMarker {
		return nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &parsed
}
