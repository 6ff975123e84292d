package weather

import "math"

// Cooling thresholds for the Phoenix data-center site. Evaporative cooling
// only pays off in dry air; above the humidity ceiling chillers win.
const (
	CoolingTempThresholdF   = 85.0
	EvapHumidityThreshold   = 30.0
	HybridHumidityThreshold = 50.0
)

// CoolingSystem is the recommended cooling mode for an hour.
type CoolingSystem string

const (
	CoolingNone        CoolingSystem = "none"
	CoolingEvaporative CoolingSystem = "evaporative"
	CoolingHybrid      CoolingSystem = "hybrid"
	CoolingChiller     CoolingSystem = "electric_chiller"
)

// CoolingAnalysis summarizes how effective evaporative cooling would be for
// one observed hour.
type CoolingAnalysis struct {
	TemperatureF       float64
	HumidityPercent    float64
	CoolingNeeded      bool
	EvapEffective      bool
	RecommendedSystem  CoolingSystem
	EfficiencyScorePct float64
}

// AnalyzeCoolingEfficiency scores evaporative-cooling effectiveness for the
// given conditions.
func AnalyzeCoolingEfficiency(temperatureF, humidityPercent float64) CoolingAnalysis {
	analysis := CoolingAnalysis{
		TemperatureF:      temperatureF,
		HumidityPercent:   humidityPercent,
		RecommendedSystem: CoolingNone,
	}

	if temperatureF <= CoolingTempThresholdF {
		return analysis
	}
	analysis.CoolingNeeded = true

	switch {
	case humidityPercent < EvapHumidityThreshold:
		analysis.EvapEffective = true
		analysis.RecommendedSystem = CoolingEvaporative
		analysis.EfficiencyScorePct = round1((1.0 - humidityPercent/100.0) * 100)
	case humidityPercent < HybridHumidityThreshold:
		analysis.EvapEffective = true
		analysis.RecommendedSystem = CoolingHybrid
		analysis.EfficiencyScorePct = round1(0.5 * (1.0 - humidityPercent/100.0) * 100)
	default:
		analysis.RecommendedSystem = CoolingChiller
	}
	return analysis
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
