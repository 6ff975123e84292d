package pricing

import "time"

// Price sources, recorded alongside stored rates so a reader can tell
// market-derived prices from schedule fallbacks.
const (
	SourceDatabase = "database"
	SourceEIA      = "eia_api"
	SourceTOU      = "fallback_tou"
)

// PriceRecord is one stored hourly electricity price. Hour is the hour of
// day in [0, 24), kept alongside the timestamp for day-shaped queries.
type PriceRecord struct {
	Timestamp time.Time
	Hour      int
	PriceMWh  float64
	Type      RateType
	Source    string
}

// WaterPriceRecord is one stored water delivery price.
type WaterPriceRecord struct {
	Date              time.Time
	PricePer1000Gal   float64
	CumulativeGallons float64
}
