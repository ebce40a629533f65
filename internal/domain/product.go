package domain

// RawRecord is an untyped product record exactly as delivered by the
// OpenFoodFacts API. The validation engine never mutates it.
type RawRecord map[string]interface{}

// Grade is a letter grade (A-E) used by both Nutri-Score and Eco-Score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
)

// Valid reports whether the grade is one of A-E.
func (g Grade) Valid() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeD, GradeE:
		return true
	}
	return false
}

// QuantityUnit is the normalized unit of a product quantity.
type QuantityUnit string

const (
	UnitGram       QuantityUnit = "g"
	UnitMilliliter QuantityUnit = "ml"
)

// NormalizedProduct is the accepted output of the validation engine: a fixed
// set of typed fields ready for storage and display.
type NormalizedProduct struct {
	Barcode            string       `json:"barcode"`
	ProductName        string       `json:"productName"`
	BrandName          string       `json:"brandName"`
	BrandTags          []string     `json:"brandTags,omitempty"`
	WeightGrams        float64      `json:"weightGrams"`
	QuantityUnit       QuantityUnit `json:"quantityUnit"`
	NutriscoreGrade    *Grade       `json:"nutriscoreGrade,omitempty"`
	NutriscoreScore    *int         `json:"nutriscoreScore,omitempty"`
	EcoScore           *Grade       `json:"ecoScore,omitempty"`
	CO2PerHundredGrams float64      `json:"co2PerHundredGrams"`

	Metrics DerivedMetrics `json:"metrics"`
}

// Rule identifies the validation rule a rejected record violated.
type Rule string

const (
	RuleParseFailure       Rule = "parse_failure"
	RuleRangeViolation     Rule = "range_violation"
	RuleFormatViolation    Rule = "format_violation"
	RulePresenceViolation  Rule = "presence_violation"
	RuleNutriscoreRequired Rule = "nutriscore_required"
)

// RejectionRecord is produced instead of a NormalizedProduct when a critical
// field or cross-field rule fails. The reporting layer aggregates these by
// field and rule.
type RejectionRecord struct {
	Barcode          string      `json:"barcodeIfKnown,omitempty"`
	FieldName        string      `json:"fieldName"`
	RuleViolated     Rule        `json:"ruleViolated"`
	RawValueSnapshot interface{} `json:"rawValueSnapshot,omitempty"`
}

// ImpactLevel is the four-bucket classification of a product's total CO2
// impact.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "LOW"
	ImpactMedium   ImpactLevel = "MEDIUM"
	ImpactHigh     ImpactLevel = "HIGH"
	ImpactVeryHigh ImpactLevel = "VERY_HIGH"
)

// Rank orders impact levels from LOW (0) to VERY_HIGH (3).
func (l ImpactLevel) Rank() int {
	switch l {
	case ImpactLow:
		return 0
	case ImpactMedium:
		return 1
	case ImpactHigh:
		return 2
	case ImpactVeryHigh:
		return 3
	}
	return -1
}

// DerivedMetrics are pure functions of (co2PerHundredGrams, weightGrams).
// They are computed by the engine and never independently settable.
type DerivedMetrics struct {
	TotalCO2ImpactGrams float64     `json:"totalCo2ImpactGrams"`
	CO2VehicleKm        float64     `json:"co2VehicleKm"`
	CO2TrainKm          float64     `json:"co2TrainKm"`
	CO2BusKm            float64     `json:"co2BusKm"`
	CO2PlaneKm          float64     `json:"co2PlaneKm"`
	ImpactLevel         ImpactLevel `json:"impactLevel"`
}
