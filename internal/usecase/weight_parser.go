package usecase

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/foodscan/backend/internal/domain"
)

// Quantity parsing errors. The weight resolver maps these onto rejection
// rules; callers never see a silently defaulted value.
var (
	ErrUnparseableQuantity = errors.New("quantity string could not be parsed")
	ErrQuantityOutOfRange  = errors.New("quantity outside valid weight range")
)

// Package-level compiled regex patterns for quantity parsing
var (
	// Decimal comma between digits ("1,5kg" == "1.5kg")
	decimalCommaPattern = regexp.MustCompile(`(\d),(\d)`)

	// Multiplier pattern: "2 × 250g", "4 x 25g", "2*250g"
	multiplierPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[x×*]\s*(\d+(?:\.\d+)?)\s*([a-z]+)`)

	// Standard quantity with attached or spaced unit: "400g", "1.5 kg", "500ml"
	quantityPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-z]+)`)
)

// unitFactors maps a normalized unit to its gram (or gram-equivalent)
// conversion factor and the unit family of the result. Volumes are treated as
// gram-equivalent (1ml ~ 1g) for CO2 purposes.
var unitFactors = map[string]struct {
	factor float64
	unit   domain.QuantityUnit
}{
	"g":  {1, domain.UnitGram},
	"gr": {1, domain.UnitGram},
	"kg": {1000, domain.UnitGram},
	"ml": {1, domain.UnitMilliliter},
	"cl": {10, domain.UnitMilliliter},
	"l":  {1000, domain.UnitMilliliter},
}

// unitSynonyms maps long-form unit spellings (including French ones that
// appear in OpenFoodFacts quantity strings) onto the recognized short units.
var unitSynonyms = map[string]string{
	"gram": "g", "grams": "g", "gramme": "g", "grammes": "g",
	"kilo": "kg", "kilos": "kg", "kilogram": "kg", "kilogramme": "kg",
	"millilitre": "ml", "millilitres": "ml", "milliliter": "ml", "milliliters": "ml",
	"litre": "l", "litres": "l", "liter": "l", "liters": "l",
	"centilitre": "cl", "centiliter": "cl",
}

// ParsedQuantity is a quantity string normalized to grams (or
// gram-equivalent milliliters).
type ParsedQuantity struct {
	Grams float64
	Unit  domain.QuantityUnit
}

// ParseQuantity parses a free-text quantity string like "400g", "1,5kg",
// "2 x 250g" or "Famille 1L" into grams. Surrounding noise tokens are ignored
// because the numeric pattern is searched, not anchored. An unrecognized unit
// or a missing numeric token fails with ErrUnparseableQuantity; a converted
// value outside (0, 50000] grams fails with ErrQuantityOutOfRange.
func ParseQuantity(input string) (ParsedQuantity, error) {
	cleaned := strings.ToLower(strings.TrimSpace(input))
	if cleaned == "" {
		return ParsedQuantity{}, ErrUnparseableQuantity
	}
	cleaned = decimalCommaPattern.ReplaceAllString(cleaned, "$1.$2")

	if m := multiplierPattern.FindStringSubmatch(cleaned); m != nil {
		count := parseFloat(m[1])
		value := parseFloat(m[2])
		return convertToGrams(count*value, m[3])
	}

	if m := quantityPattern.FindStringSubmatch(cleaned); m != nil {
		return convertToGrams(parseFloat(m[1]), m[2])
	}

	return ParsedQuantity{}, ErrUnparseableQuantity
}

// ParseNumericQuantity handles the pre-parsed numeric form of a quantity.
// A bare number without a unit is assumed to be grams; an explicit unit goes
// through the same normalization as string parsing.
func ParseNumericQuantity(value float64, unit string) (ParsedQuantity, error) {
	if unit == "" {
		unit = "g"
	}
	return convertToGrams(value, unit)
}

// convertToGrams applies the unit conversion factor and enforces the weight
// bound. Rejects, never clamps.
func convertToGrams(value float64, rawUnit string) (ParsedQuantity, error) {
	unit := strings.TrimSpace(strings.ToLower(rawUnit))
	if canonical, ok := unitSynonyms[unit]; ok {
		unit = canonical
	}

	conv, ok := unitFactors[unit]
	if !ok {
		return ParsedQuantity{}, ErrUnparseableQuantity
	}

	grams := value * conv.factor
	if grams <= 0 || grams > MaxWeightGrams {
		return ParsedQuantity{}, ErrQuantityOutOfRange
	}

	return ParsedQuantity{Grams: grams, Unit: conv.unit}, nil
}

// parseFloat converts a regex-captured numeric token. The patterns only
// capture digit sequences with an optional single decimal point, so the
// conversion cannot fail.
func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
