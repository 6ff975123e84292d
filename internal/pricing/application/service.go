package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/Automynx/Cooling-The-Cloud/internal/observability/metrics"
	pricing "github.com/Automynx/Cooling-The-Cloud/internal/pricing/domain"
)

// PriceStore persists and loads resolved prices.
type PriceStore interface {
	PricesForDay(ctx context.Context, day time.Time, hourCount int) ([]pricing.PriceRecord, error)
	StorePrices(ctx context.Context, records []pricing.PriceRecord) error
	WaterPriceForDay(ctx context.Context, day time.Time) (*pricing.WaterPriceRecord, error)
	StoreWaterPrice(ctx context.Context, rec pricing.WaterPriceRecord) error
}

// MarketFeed supplies market-derived hourly prices for a day.
type MarketFeed interface {
	HourlyPrices(ctx context.Context, day time.Time, hourCount int) ([]pricing.PriceRecord, error)
}

// TemperatureSource supplies per-hour mean temperatures for a day.
type TemperatureSource interface {
	HourlyTemperatures(ctx context.Context, day time.Time, hourCount int) (map[int]float64, error)
}

// Synthetic desert diurnal profile, used when no observations exist for a
// day: overnight low near sunrise, peak in the late afternoon.
const (
	fallbackMeanTempF      = 92.0
	fallbackTempAmplitudeF = 14.0
	fallbackPeakHour       = 16
)

type cacheKey struct {
	date  string
	hours int
}

// Service resolves hourly electricity prices, daily water prices, and hourly
// temperatures, caching per (day, hour count) within the process.
type Service struct {
	store    PriceStore
	feed     MarketFeed
	temps    TemperatureSource
	schedule pricing.TOUSchedule
	logger   *log.Logger

	mu         sync.Mutex
	priceCache map[cacheKey][]pricing.PriceRecord
	tempCache  map[cacheKey][]float64
}

// NewService constructs the pricing service. feed may be nil, in which case
// resolution falls straight through to the rate schedule; temps may be nil
// when no temperature consumer is wired.
func NewService(store PriceStore, feed MarketFeed, temps TemperatureSource, schedule pricing.TOUSchedule, logger *log.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("pricing service: nil store")
	}
	if logger == nil {
		return nil, errors.New("pricing service: nil logger")
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		store:      store,
		feed:       feed,
		temps:      temps,
		schedule:   schedule,
		logger:     logger,
		priceCache: make(map[cacheKey][]pricing.PriceRecord),
		tempCache:  make(map[cacheKey][]float64),
	}, nil
}

// HourlyPrices resolves hourly $/MWh prices for the first hourCount hours of
// a day. Resolution order: stored prices when the set is complete, then the
// market feed (result is stored for next time), then the rate schedule.
// Results are cached per (day, hour count) for the life of the process.
func (s *Service) HourlyPrices(ctx context.Context, day time.Time, hourCount int) ([]pricing.PriceRecord, error) {
	if hourCount < 1 || hourCount > 24 {
		return nil, fmt.Errorf("%w: count %d", pricing.ErrInvalidHour, hourCount)
	}
	day = day.UTC().Truncate(24 * time.Hour)
	key := cacheKey{date: day.Format("2006-01-02"), hours: hourCount}

	s.mu.Lock()
	if cached, ok := s.priceCache[key]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	records, source, err := s.resolvePrices(ctx, day, hourCount)
	if err != nil {
		return nil, err
	}
	metrics.IncPriceResolution(source)

	s.mu.Lock()
	s.priceCache[key] = records
	s.mu.Unlock()
	return records, nil
}

func (s *Service) resolvePrices(ctx context.Context, day time.Time, hourCount int) ([]pricing.PriceRecord, string, error) {
	stored, err := s.store.PricesForDay(ctx, day, hourCount)
	if err != nil {
		return nil, "", err
	}
	if len(stored) >= hourCount {
		return stored[:hourCount], pricing.SourceDatabase, nil
	}

	if s.feed != nil {
		fetched, err := s.feed.HourlyPrices(ctx, day, hourCount)
		if err != nil {
			s.logger.Printf("market feed unavailable for %s, falling back to rate schedule: %v",
				day.Format("2006-01-02"), err)
		} else if len(fetched) == hourCount {
			if err := s.store.StorePrices(ctx, fetched); err != nil {
				s.logger.Printf("storing market prices for %s failed: %v", day.Format("2006-01-02"), err)
			}
			return fetched, pricing.SourceEIA, nil
		}
	}

	rates, err := s.schedule.HourlyRates(hourCount)
	if err != nil {
		return nil, "", err
	}
	records := make([]pricing.PriceRecord, 0, hourCount)
	for _, rate := range rates {
		records = append(records, pricing.PriceRecord{
			Timestamp: day.Add(time.Duration(rate.Hour) * time.Hour),
			Hour:      rate.Hour,
			PriceMWh:  rate.PriceMWh,
			Type:      rate.Type,
			Source:    pricing.SourceTOU,
		})
	}
	return records, pricing.SourceTOU, nil
}

// WaterPrice resolves the $/1000 gal water price for a date. A stored price
// wins; otherwise the price is computed from the seasonal and tier model and
// stored for next time.
func (s *Service) WaterPrice(ctx context.Context, day time.Time, cumulativeGallons float64) (float64, error) {
	day = day.UTC().Truncate(24 * time.Hour)

	stored, err := s.store.WaterPriceForDay(ctx, day)
	if err != nil {
		return 0, err
	}
	if stored != nil {
		return stored.PricePer1000Gal, nil
	}

	price, err := pricing.WaterPrice(day, cumulativeGallons)
	if err != nil {
		return 0, err
	}
	rec := pricing.WaterPriceRecord{Date: day, PricePer1000Gal: price, CumulativeGallons: cumulativeGallons}
	if err := s.store.StoreWaterPrice(ctx, rec); err != nil {
		s.logger.Printf("storing water price for %s failed: %v", day.Format("2006-01-02"), err)
	}
	return price, nil
}

// HourlyTemperatures returns one mean temperature per hour for the first
// hourCount hours of a day. Hours without observations borrow the nearest
// observed hour; a day with no observations at all gets the synthetic
// diurnal profile. Results are cached per (day, hour count).
func (s *Service) HourlyTemperatures(ctx context.Context, day time.Time, hourCount int) ([]float64, error) {
	if hourCount < 1 || hourCount > 24 {
		return nil, fmt.Errorf("%w: count %d", pricing.ErrInvalidHour, hourCount)
	}
	day = day.UTC().Truncate(24 * time.Hour)
	key := cacheKey{date: day.Format("2006-01-02"), hours: hourCount}

	s.mu.Lock()
	if cached, ok := s.tempCache[key]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	observed := map[int]float64{}
	if s.temps != nil {
		var err error
		observed, err = s.temps.HourlyTemperatures(ctx, day, hourCount)
		if err != nil {
			return nil, err
		}
	}

	temps := make([]float64, hourCount)
	if len(observed) == 0 {
		s.logger.Printf("no observations for %s, using synthetic diurnal profile", day.Format("2006-01-02"))
		for hour := 0; hour < hourCount; hour++ {
			temps[hour] = syntheticTemperature(hour)
		}
	} else {
		for hour := 0; hour < hourCount; hour++ {
			temps[hour] = nearestTemperature(observed, hour)
		}
	}

	s.mu.Lock()
	s.tempCache[key] = temps
	s.mu.Unlock()
	return temps, nil
}

func nearestTemperature(observed map[int]float64, hour int) float64 {
	if temp, ok := observed[hour]; ok {
		return temp
	}
	bestDistance := math.MaxInt
	var best float64
	for candidate, temp := range observed {
		distance := candidate - hour
		if distance < 0 {
			distance = -distance
		}
		if distance < bestDistance || (distance == bestDistance && candidate < hour) {
			bestDistance = distance
			best = temp
		}
	}
	return best
}

func syntheticTemperature(hour int) float64 {
	phase := 2 * math.Pi * float64(hour-fallbackPeakHour) / 24
	return math.Round((fallbackMeanTempF+fallbackTempAmplitudeF*math.Cos(phase))*10) / 10
}
