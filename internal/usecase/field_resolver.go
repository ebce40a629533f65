package usecase

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/foodscan/backend/internal/domain"
)

// barcodePattern is the accepted barcode shape: digits only, EAN-8 up to the
// longest observed GS1 identifiers.
var barcodePattern = regexp.MustCompile(`^[0-9]{8,18}$`)

// FieldCandidate is one named source path within a raw record. Candidates
// form an ordered fallback chain; the first one whose extracted value passes
// the field's local rule wins.
type FieldCandidate struct {
	Source  string
	Extract func(domain.RawRecord) (interface{}, bool)
}

// ResolvedField is the outcome of evaluating one fallback chain: either a
// value with the source that produced it, or a rejection with the rule that
// ultimately applied.
type ResolvedField struct {
	Value      interface{}
	SourceUsed string
	Rejected   bool
	Rule       domain.Rule
	Snapshot   interface{}
}

// FieldResolver evaluates an ordered candidate list against a raw record.
// Normalize applies the field's local validity rule: it returns the
// normalized value, or a non-empty rule when the candidate's value violates
// it. Resolvers never mutate the record.
type FieldResolver struct {
	Field      string
	Candidates []FieldCandidate
	Normalize  func(interface{}) (interface{}, domain.Rule)
}

// Resolve walks the fallback chain lazily, stopping at the first candidate
// whose value passes the local rule. When every candidate fails, the
// rejection cites the last rule violated, or presence_violation when no
// source held a value at all.
func (fr *FieldResolver) Resolve(record domain.RawRecord) ResolvedField {
	lastRule := domain.RulePresenceViolation
	var lastRaw interface{}

	for _, candidate := range fr.Candidates {
		raw, ok := candidate.Extract(record)
		if !ok {
			continue
		}
		lastRaw = raw

		value, rule := fr.Normalize(raw)
		if rule == "" {
			return ResolvedField{Value: value, SourceUsed: candidate.Source}
		}
		lastRule = rule
	}

	return ResolvedField{Rejected: true, Rule: lastRule, Snapshot: lastRaw}
}

// stringValue extracts a non-empty trimmed string at key.
func stringValue(key string) func(domain.RawRecord) (interface{}, bool) {
	return func(r domain.RawRecord) (interface{}, bool) {
		s, ok := r[key].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, false
		}
		return strings.TrimSpace(s), true
	}
}

// nestedStringValue extracts a non-empty string at path[0].path[1].
func nestedStringValue(outer, inner string) func(domain.RawRecord) (interface{}, bool) {
	return func(r domain.RawRecord) (interface{}, bool) {
		m, ok := r[outer].(map[string]interface{})
		if !ok {
			return nil, false
		}
		s, ok := m[inner].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, false
		}
		return strings.TrimSpace(s), true
	}
}

// numericValue extracts a numeric field, coercing the float64/int/string
// shapes that OpenFoodFacts payloads use interchangeably.
func numericValue(key string) func(domain.RawRecord) (interface{}, bool) {
	return func(r domain.RawRecord) (interface{}, bool) {
		return coerceFloat(r[key])
	}
}

// nestedNumericValue extracts a numeric field one map level down.
func nestedNumericValue(outer, inner string) func(domain.RawRecord) (interface{}, bool) {
	return func(r domain.RawRecord) (interface{}, bool) {
		m, ok := r[outer].(map[string]interface{})
		if !ok {
			return nil, false
		}
		return coerceFloat(m[inner])
	}
}

// deepNumericValue extracts a numeric field two map levels down.
func deepNumericValue(outer, middle, inner string) func(domain.RawRecord) (interface{}, bool) {
	return func(r domain.RawRecord) (interface{}, bool) {
		m, ok := r[outer].(map[string]interface{})
		if !ok {
			return nil, false
		}
		n, ok := m[middle].(map[string]interface{})
		if !ok {
			return nil, false
		}
		return coerceFloat(n[inner])
	}
}

// coerceFloat converts the value shapes a decoded JSON payload can carry for
// a number. Unconvertible values count as absent, continuing the chain.
func coerceFloat(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

// NewBarcodeResolver resolves the product barcode from the single "code"
// source. Digits only, length 8-18.
func NewBarcodeResolver() *FieldResolver {
	return &FieldResolver{
		Field: "barcode",
		Candidates: []FieldCandidate{
			{Source: "code", Extract: func(r domain.RawRecord) (interface{}, bool) {
				switch v := r["code"].(type) {
				case string:
					if v == "" {
						return nil, false
					}
					return v, true
				case float64:
					// Some payloads deliver the barcode as a number.
					return strconv.FormatFloat(v, 'f', -1, 64), true
				}
				return nil, false
			}},
		},
		Normalize: func(v interface{}) (interface{}, domain.Rule) {
			s := v.(string)
			if !barcodePattern.MatchString(s) {
				return nil, domain.RuleFormatViolation
			}
			return s, ""
		},
	}
}

// NewProductNameResolver resolves the display name, French first. The chain
// order is data: swapping the preference is a reordering of candidates, not
// a code change.
func NewProductNameResolver() *FieldResolver {
	return &FieldResolver{
		Field: "product_name",
		Candidates: []FieldCandidate{
			{Source: "product_name_fr", Extract: stringValue("product_name_fr")},
			{Source: "product_name", Extract: stringValue("product_name")},
		},
		Normalize: nonEmptyString,
	}
}

// NewBrandNameResolver resolves the brand label: direct brands field, then
// the first brand tag (dashes to spaces, title-cased), then the imported
// brands field.
func NewBrandNameResolver() *FieldResolver {
	return &FieldResolver{
		Field: "brand_name",
		Candidates: []FieldCandidate{
			{Source: "brands", Extract: stringValue("brands")},
			{Source: "brands_tags[0]", Extract: func(r domain.RawRecord) (interface{}, bool) {
				tags := brandTagList(r)
				if len(tags) == 0 {
					return nil, false
				}
				name := strings.ReplaceAll(tags[0], "-", " ")
				return titleCase(name), true
			}},
			{Source: "brands_imported", Extract: stringValue("brands_imported")},
		},
		Normalize: nonEmptyString,
	}
}

// NewCO2Resolver resolves CO2 intensity (grams per 100g) from the ordered
// agribalyse, ecoscore-derived and nutriments sources.
func NewCO2Resolver() *FieldResolver {
	return &FieldResolver{
		Field: "co2_total",
		Candidates: []FieldCandidate{
			{Source: "agribalyse.co2_total", Extract: nestedNumericValue("agribalyse", "co2_total")},
			{Source: "ecoscore_data.agribalyse.co2_total", Extract: deepNumericValue("ecoscore_data", "agribalyse", "co2_total")},
			{Source: "nutriments.carbon-footprint_100g", Extract: nestedNumericValue("nutriments", "carbon-footprint_100g")},
			{Source: "nutriments.carbon-footprint-from-known-ingredients_100g", Extract: nestedNumericValue("nutriments", "carbon-footprint-from-known-ingredients_100g")},
		},
		Normalize: func(v interface{}) (interface{}, domain.Rule) {
			f := v.(float64)
			if f < 0 || f > MaxCO2PerHundredGrams {
				return nil, domain.RuleRangeViolation
			}
			return f, ""
		},
	}
}

// NewEcoScoreResolver resolves the optional Eco-Score grade.
func NewEcoScoreResolver() *FieldResolver {
	return &FieldResolver{
		Field: "eco_score",
		Candidates: []FieldCandidate{
			{Source: "ecoscore_grade", Extract: stringValue("ecoscore_grade")},
		},
		Normalize: gradeRule,
	}
}

// NewNutriscoreGradeResolver resolves the Nutri-Score grade from the nested
// nutriscore block first, then the flat fields.
func NewNutriscoreGradeResolver() *FieldResolver {
	return &FieldResolver{
		Field: "nutriscore_grade",
		Candidates: []FieldCandidate{
			{Source: "nutriscore.grade", Extract: nestedStringValue("nutriscore", "grade")},
			{Source: "nutriscore_grade", Extract: stringValue("nutriscore_grade")},
			{Source: "nutrition_grades", Extract: stringValue("nutrition_grades")},
		},
		Normalize: gradeRule,
	}
}

// NewNutriscoreScoreResolver resolves the Nutri-Score numeric score.
func NewNutriscoreScoreResolver() *FieldResolver {
	return &FieldResolver{
		Field: "nutriscore_score",
		Candidates: []FieldCandidate{
			{Source: "nutriscore.score", Extract: nestedNumericValue("nutriscore", "score")},
			{Source: "nutriscore_score", Extract: numericValue("nutriscore_score")},
		},
		Normalize: func(v interface{}) (interface{}, domain.Rule) {
			f := v.(float64)
			score := int(f)
			if float64(score) != f {
				return nil, domain.RuleFormatViolation
			}
			if score < MinNutriscoreScore || score > MaxNutriscoreScore {
				return nil, domain.RuleRangeViolation
			}
			return score, ""
		},
	}
}

// nonEmptyString is the local rule for display text fields.
func nonEmptyString(v interface{}) (interface{}, domain.Rule) {
	s := strings.TrimSpace(v.(string))
	if s == "" {
		return nil, domain.RulePresenceViolation
	}
	return s, ""
}

// gradeRule uppercases and validates an A-E letter grade.
func gradeRule(v interface{}) (interface{}, domain.Rule) {
	g := domain.Grade(strings.ToUpper(strings.TrimSpace(v.(string))))
	if !g.Valid() {
		return nil, domain.RuleFormatViolation
	}
	return g, ""
}

// brandTagList reads the brands_tags array, tolerating both []interface{}
// (decoded JSON) and []string (constructed records).
func brandTagList(r domain.RawRecord) []string {
	switch tags := r["brands_tags"].(type) {
	case []string:
		return tags
	case []interface{}:
		out := make([]string, 0, len(tags))
		for _, t := range tags {
			if s, ok := t.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ResolveWeight evaluates the weight fallback chain. The chain prefers the
// pre-normalized product_quantity/product_quantity_unit pair, then parses
// product_quantity, then the free-text quantity field. Weight and unit always
// come from one parse, so their pairing needs no cross-field rule.
func ResolveWeight(record domain.RawRecord) ResolvedField {
	lastRule := domain.RulePresenceViolation
	var lastRaw interface{}

	// Candidate 1: pre-normalized value + unit pair.
	if value, ok := coerceFloat(record["product_quantity"]); ok {
		if unit, uok := record["product_quantity_unit"].(string); uok && unit != "" {
			lastRaw = record["product_quantity"]
			parsed, err := ParseNumericQuantity(value.(float64), unit)
			if err == nil {
				return ResolvedField{Value: parsed, SourceUsed: "product_quantity+product_quantity_unit"}
			}
			lastRule = quantityRule(err)
		}
	}

	// Candidate 2: product_quantity alone, numeric or free text.
	if rf, ok := resolveQuantityValue(record["product_quantity"], "product_quantity", &lastRule, &lastRaw); ok {
		return rf
	}

	// Candidate 3: the free-text quantity field.
	if rf, ok := resolveQuantityValue(record["quantity"], "quantity", &lastRule, &lastRaw); ok {
		return rf
	}

	return ResolvedField{Rejected: true, Rule: lastRule, Snapshot: lastRaw}
}

// resolveQuantityValue runs one weight candidate, recording the failure rule
// so the chain can cite the rule that ultimately applied.
func resolveQuantityValue(raw interface{}, source string, lastRule *domain.Rule, lastRaw *interface{}) (ResolvedField, bool) {
	switch v := raw.(type) {
	case float64, int:
		*lastRaw = raw
		f, _ := coerceFloat(v)
		parsed, err := ParseNumericQuantity(f.(float64), "")
		if err == nil {
			return ResolvedField{Value: parsed, SourceUsed: source}, true
		}
		*lastRule = quantityRule(err)
	case string:
		if strings.TrimSpace(v) == "" {
			return ResolvedField{}, false
		}
		*lastRaw = v
		parsed, err := ParseQuantity(v)
		if err == nil {
			return ResolvedField{Value: parsed, SourceUsed: source}, true
		}
		*lastRule = quantityRule(err)
	}
	return ResolvedField{}, false
}

// quantityRule maps a parser error onto the rejection rule it represents.
func quantityRule(err error) domain.Rule {
	if errors.Is(err, ErrQuantityOutOfRange) {
		return domain.RuleRangeViolation
	}
	return domain.RuleParseFailure
}
