package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	pricing "github.com/Automynx/Cooling-The-Cloud/internal/pricing/domain"
)

const dateLayout = "2006-01-02"

// PriceService resolves hourly electricity prices, the daily water rate, and
// hourly site temperatures for one day.
type PriceService interface {
	HourlyPrices(ctx context.Context, day time.Time, hourCount int) ([]pricing.PriceRecord, error)
	WaterPrice(ctx context.Context, day time.Time, cumulativeGallons float64) (float64, error)
	HourlyTemperatures(ctx context.Context, day time.Time, hourCount int) ([]float64, error)
}

// PricesHandler serves the resolved price and temperature profile for a day.
type PricesHandler struct {
	prices PriceService
}

// NewPricesHandler constructs a PricesHandler.
func NewPricesHandler(prices PriceService) *PricesHandler {
	return &PricesHandler{prices: prices}
}

type hourlyPriceRow struct {
	Hour     int     `json:"hour"`
	PriceMWh float64 `json:"price_per_mwh"`
	RateType string  `json:"rate_type"`
}

type pricesResponse struct {
	Date                 string           `json:"date"`
	Source               string           `json:"source"`
	ElectricityPrices    []hourlyPriceRow `json:"electricity_prices"`
	WaterPricePer1000Gal float64          `json:"water_price_per_1000gal"`
	TemperaturesF        []float64        `json:"temperatures_f"`
}

// ServeHTTP handles GET /api/v1/prices?date=YYYY-MM-DD.
func (h *PricesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.prices == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	day := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	records, err := h.prices.HourlyPrices(r.Context(), day, 24)
	if err != nil {
		http.Error(w, "failed to resolve prices", http.StatusInternalServerError)
		return
	}
	waterPrice, err := h.prices.WaterPrice(r.Context(), day, 0)
	if err != nil {
		http.Error(w, "failed to resolve water price", http.StatusInternalServerError)
		return
	}
	temperatures, err := h.prices.HourlyTemperatures(r.Context(), day, 24)
	if err != nil {
		http.Error(w, "failed to resolve temperatures", http.StatusInternalServerError)
		return
	}

	resp := pricesResponse{
		Date:                 day.Format(dateLayout),
		ElectricityPrices:    make([]hourlyPriceRow, 0, len(records)),
		WaterPricePer1000Gal: waterPrice,
		TemperaturesF:        temperatures,
	}
	if len(records) > 0 {
		resp.Source = records[0].Source
	}
	for _, rec := range records {
		resp.ElectricityPrices = append(resp.ElectricityPrices, hourlyPriceRow{
			Hour:     rec.Hour,
			PriceMWh: rec.PriceMWh,
			RateType: string(rec.Type),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
