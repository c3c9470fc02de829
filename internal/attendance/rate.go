package attendance

import "math"

// DefaultLateWeight is the partial credit a late check-in earns.
const DefaultLateWeight = 0.8

// Rate returns (present + late*lateWeight) / total * 100, or 0 when total is 0.
func Rate(present, late, total int64, lateWeight float64) float64 {
	if total <= 0 {
		return 0
	}
	return (float64(present) + float64(late)*lateWeight) / float64(total) * 100
}

// Round2 rounds to two decimal places for presentation.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
