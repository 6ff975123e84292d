package application

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	pricing "github.com/Automynx/Cooling-The-Cloud/internal/pricing/domain"
)

// Config defines pricing configuration.
type Config struct {
	PeakRateMWh         float64 `yaml:"peak_rate_mwh"`
	OffPeakRateMWh      float64 `yaml:"off_peak_rate_mwh"`
	SuperOffPeakRateMWh float64 `yaml:"super_off_peak_rate_mwh"`
	PeakHoursStart      int     `yaml:"peak_hours_start"`
	PeakHoursEnd        int     `yaml:"peak_hours_end"`

	EIAAPIKey   string `yaml:"eia_api_key"`
	EIAStateID  string `yaml:"eia_state_id"`
	EIASectorID string `yaml:"eia_sector_id"`
}

// LoadConfig loads pricing config from yaml or env. The PRICING_CONFIG env
// var names an optional yaml file; env values fill anything the file leaves
// unset.
func LoadConfig() (Config, error) {
	cfg := Config{}

	if path := os.Getenv("PRICING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.PeakRateMWh == 0 {
		cfg.PeakRateMWh = getenvFloatDefault("PEAK_RATE_MWH", pricing.DefaultPeakRate)
	}
	if cfg.OffPeakRateMWh == 0 {
		cfg.OffPeakRateMWh = getenvFloatDefault("OFF_PEAK_RATE_MWH", pricing.DefaultOffPeakRate)
	}
	if cfg.SuperOffPeakRateMWh == 0 {
		cfg.SuperOffPeakRateMWh = getenvFloatDefault("SUPER_OFF_PEAK_RATE_MWH", pricing.DefaultSuperOffPeakRate)
	}
	if cfg.PeakHoursStart == 0 {
		cfg.PeakHoursStart = getenvIntDefault("PEAK_HOURS_START", pricing.DefaultPeakStartHour)
	}
	if cfg.PeakHoursEnd == 0 {
		cfg.PeakHoursEnd = getenvIntDefault("PEAK_HOURS_END", pricing.DefaultPeakEndHour)
	}
	if cfg.EIAAPIKey == "" {
		cfg.EIAAPIKey = os.Getenv("EIA_API_KEY")
	}
	if cfg.EIAStateID == "" {
		cfg.EIAStateID = getenvDefault("EIA_STATE_ID", "AZ")
	}
	if cfg.EIASectorID == "" {
		cfg.EIASectorID = getenvDefault("EIA_SECTOR_ID", "COM")
	}
	return cfg, nil
}

// Schedule builds the TOU schedule from the configured rates and peak
// window.
func (c Config) Schedule() pricing.TOUSchedule {
	return pricing.TOUSchedule{
		PeakRate:         c.PeakRateMWh,
		OffPeakRate:      c.OffPeakRateMWh,
		SuperOffPeakRate: c.SuperOffPeakRateMWh,
		PeakStart:        c.PeakHoursStart,
		PeakEnd:          c.PeakHoursEnd,
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
