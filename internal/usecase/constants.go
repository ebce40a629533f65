package usecase

// Validation bounds shared by the engine and its tests. All weights are in
// grams after unit conversion; CO2 intensity is grams of CO2 per 100g of
// product.
const (
	MaxWeightGrams        = 50000.0 // weight must be in (0, MaxWeightGrams]
	MaxCO2PerHundredGrams = 10000.0 // CO2 intensity must be in [0, MaxCO2PerHundredGrams]

	MinNutriscoreScore = -15
	MaxNutriscoreScore = 40
)

// Transport CO2 factors in grams of CO2 emitted per km per passenger.
const (
	carbonFactorCar   = 120.0
	carbonFactorTrain = 14.0
	carbonFactorBus   = 68.0
	carbonFactorPlane = 255.0
)

// Impact bucket upper bounds in grams of total CO2, inclusive.
const (
	impactLowMax    = 500.0
	impactMediumMax = 1500.0
	impactHighMax   = 3000.0
)
