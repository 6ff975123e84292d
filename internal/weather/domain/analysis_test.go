package weather

import "testing"

func TestAnalyzeCoolingEfficiency(t *testing.T) {
	tests := []struct {
		name     string
		tempF    float64
		humidity float64
		want     CoolingSystem
		needed   bool
	}{
		{"cool hour needs nothing", 80, 20, CoolingNone, false},
		{"hot and dry favors evaporative", 105, 15, CoolingEvaporative, true},
		{"hot and moderately humid favors hybrid", 100, 40, CoolingHybrid, true},
		{"hot and humid needs chillers", 95, 60, CoolingChiller, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeCoolingEfficiency(tt.tempF, tt.humidity)
			if got.RecommendedSystem != tt.want {
				t.Fatalf("recommended %s, want %s", got.RecommendedSystem, tt.want)
			}
			if got.CoolingNeeded != tt.needed {
				t.Fatalf("cooling needed = %v, want %v", got.CoolingNeeded, tt.needed)
			}
		})
	}
}

func TestAnalyzeCoolingEfficiency_Score(t *testing.T) {
	got := AnalyzeCoolingEfficiency(105, 20)
	if got.EfficiencyScorePct != 80.0 {
		t.Fatalf("efficiency = %v, want 80.0", got.EfficiencyScorePct)
	}

	hybrid := AnalyzeCoolingEfficiency(100, 40)
	if hybrid.EfficiencyScorePct != 30.0 {
		t.Fatalf("hybrid efficiency = %v, want 30.0", hybrid.EfficiencyScorePct)
	}
}
