package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	pricing "github.com/Automynx/Cooling-The-Cloud/internal/pricing/domain"
	pricingpg "github.com/Automynx/Cooling-The-Cloud/internal/pricing/infrastructure/postgres"
	storage "github.com/Automynx/Cooling-The-Cloud/internal/storage/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestPriceRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := storage.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	day := time.Date(2030, time.March, 2, 0, 0, 0, 0, time.UTC)
	_, _ = db.ExecContext(ctx,
		"DELETE FROM electricity_prices WHERE timestamp >= $1 AND timestamp < $2",
		day, day.AddDate(0, 0, 1))

	repo := pricingpg.NewPriceRepository(db)

	records := []pricing.PriceRecord{
		{Timestamp: day, Hour: 0, PriceMWh: 25, Type: pricing.RateSuperOffPeak, Source: pricing.SourceTOU},
		{Timestamp: day.Add(17 * time.Hour), Hour: 17, PriceMWh: 150, Type: pricing.RatePeak, Source: pricing.SourceEIA},
	}
	if err := repo.StorePrices(ctx, records); err != nil {
		t.Fatalf("store prices: %v", err)
	}

	got, err := repo.PricesForDay(ctx, day, 24)
	if err != nil {
		t.Fatalf("prices for day: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if got[1].Hour != 17 || got[1].PriceMWh != 150 {
		t.Fatalf("row = %+v", got[1])
	}
	if got[1].Type != pricing.RatePeak || got[1].Source != pricing.SourceEIA {
		t.Fatalf("classification = %q %q", got[1].Type, got[1].Source)
	}

	// Conflicting timestamps update in place.
	records[1].PriceMWh = 160
	if err := repo.StorePrices(ctx, records[1:]); err != nil {
		t.Fatalf("conflict store: %v", err)
	}
	got, err = repo.PricesForDay(ctx, day, 24)
	if err != nil {
		t.Fatalf("prices after update: %v", err)
	}
	if len(got) != 2 || got[1].PriceMWh != 160 {
		t.Fatalf("after update: %+v", got)
	}

	water := pricing.WaterPriceRecord{Date: day, PricePer1000Gal: 4.05, CumulativeGallons: 30000}
	if err := repo.StoreWaterPrice(ctx, water); err != nil {
		t.Fatalf("store water price: %v", err)
	}
	stored, err := repo.WaterPriceForDay(ctx, day)
	if err != nil {
		t.Fatalf("water price for day: %v", err)
	}
	if stored == nil || stored.PricePer1000Gal != 4.05 {
		t.Fatalf("water = %+v", stored)
	}
}
