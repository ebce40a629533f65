package usecase

import (
	"math"

	"github.com/foodscan/backend/internal/domain"
)

// ComputeDerivedMetrics derives the total CO2 impact, transport equivalents
// and impact level from the two validated numeric fields. Pure function:
// inputs are already range-checked by the resolvers, so there is no rejection
// path here.
func ComputeDerivedMetrics(co2PerHundredGrams, weightGrams float64) domain.DerivedMetrics {
	totalCO2 := co2PerHundredGrams * weightGrams / 100.0

	return domain.DerivedMetrics{
		TotalCO2ImpactGrams: round3(totalCO2),
		CO2VehicleKm:        round3(totalCO2 / carbonFactorCar),
		CO2TrainKm:          round3(totalCO2 / carbonFactorTrain),
		CO2BusKm:            round3(totalCO2 / carbonFactorBus),
		CO2PlaneKm:          round3(totalCO2 / carbonFactorPlane),
		ImpactLevel:         impactLevelFor(totalCO2),
	}
}

// impactLevelFor buckets total CO2 grams. Boundaries are inclusive on the
// lower bucket.
func impactLevelFor(totalCO2Grams float64) domain.ImpactLevel {
	switch {
	case totalCO2Grams <= impactLowMax:
		return domain.ImpactLow
	case totalCO2Grams <= impactMediumMax:
		return domain.ImpactMedium
	case totalCO2Grams <= impactHighMax:
		return domain.ImpactHigh
	default:
		return domain.ImpactVeryHigh
	}
}

// round3 rounds to three decimal places, half away from zero.
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
