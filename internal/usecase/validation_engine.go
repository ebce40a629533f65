package usecase

import (
	"github.com/foodscan/backend/internal/domain"
)

// resolvedRecord carries the per-field resolution results between engine
// phases. Every field is immutable once produced.
type resolvedRecord struct {
	barcode         string
	productName     string
	brandName       string
	brandTags       []string
	weight          ParsedQuantity
	co2             float64
	ecoScore        *domain.Grade
	nutriscoreGrade *domain.Grade
	nutriscoreScore *int
}

// ValidationEngine turns one raw record into exactly one of a
// NormalizedProduct or a RejectionRecord. Processing moves strictly forward
// through field resolution, cross-field validation and metric computation;
// the first critical failure is terminal for the record. The engine holds no
// per-record state and performs no I/O, so records can be validated
// concurrently.
type ValidationEngine struct {
	barcode         *FieldResolver
	productName     *FieldResolver
	brandName       *FieldResolver
	co2             *FieldResolver
	ecoScore        *FieldResolver
	nutriscoreGrade *FieldResolver
	nutriscoreScore *FieldResolver
}

// NewValidationEngine builds an engine with the default fallback chains.
func NewValidationEngine() *ValidationEngine {
	return &ValidationEngine{
		barcode:         NewBarcodeResolver(),
		productName:     NewProductNameResolver(),
		brandName:       NewBrandNameResolver(),
		co2:             NewCO2Resolver(),
		ecoScore:        NewEcoScoreResolver(),
		nutriscoreGrade: NewNutriscoreGradeResolver(),
		nutriscoreScore: NewNutriscoreScoreResolver(),
	}
}

// Validate runs the full per-record decision. Exactly one of the two returns
// is non-nil on a normal outcome. A nil record is a defect in the calling
// layer, not a data-quality failure, and returns ErrInvalidRequest.
func (e *ValidationEngine) Validate(record domain.RawRecord) (*domain.NormalizedProduct, *domain.RejectionRecord, error) {
	if record == nil {
		return nil, nil, domain.ErrInvalidRequest
	}

	resolved, rejection := e.resolveFields(record)
	if rejection != nil {
		return nil, rejection, nil
	}

	if rejection := requireNutriscore(resolved); rejection != nil {
		return nil, rejection, nil
	}

	metrics := ComputeDerivedMetrics(resolved.co2, resolved.weight.Grams)

	return &domain.NormalizedProduct{
		Barcode:            resolved.barcode,
		ProductName:        resolved.productName,
		BrandName:          resolved.brandName,
		BrandTags:          resolved.brandTags,
		WeightGrams:        resolved.weight.Grams,
		QuantityUnit:       resolved.weight.Unit,
		NutriscoreGrade:    resolved.nutriscoreGrade,
		NutriscoreScore:    resolved.nutriscoreScore,
		EcoScore:           resolved.ecoScore,
		CO2PerHundredGrams: resolved.co2,
		Metrics:            metrics,
	}, nil, nil
}

// resolveFields runs every fallback chain. A critical-field failure aborts
// with a rejection citing that field; optional fields resolve to absence.
func (e *ValidationEngine) resolveFields(record domain.RawRecord) (*resolvedRecord, *domain.RejectionRecord) {
	// Barcode resolves first so later rejections can cite it.
	barcode := e.barcode.Resolve(record)
	knownBarcode := ""
	if !barcode.Rejected {
		knownBarcode = barcode.Value.(string)
	}

	reject := func(field ResolvedField, name string) *domain.RejectionRecord {
		return &domain.RejectionRecord{
			Barcode:          knownBarcode,
			FieldName:        name,
			RuleViolated:     field.Rule,
			RawValueSnapshot: field.Snapshot,
		}
	}

	if barcode.Rejected {
		return nil, reject(barcode, e.barcode.Field)
	}

	productName := e.productName.Resolve(record)
	if productName.Rejected {
		return nil, reject(productName, e.productName.Field)
	}

	brandName := e.brandName.Resolve(record)
	if brandName.Rejected {
		return nil, reject(brandName, e.brandName.Field)
	}

	weight := ResolveWeight(record)
	if weight.Rejected {
		return nil, reject(weight, "weight")
	}

	co2 := e.co2.Resolve(record)
	if co2.Rejected {
		return nil, reject(co2, e.co2.Field)
	}

	resolved := &resolvedRecord{
		barcode:     knownBarcode,
		productName: productName.Value.(string),
		brandName:   brandName.Value.(string),
		brandTags:   brandTagList(record),
		weight:      weight.Value.(ParsedQuantity),
		co2:         co2.Value.(float64),
	}

	// Optional fields: resolver failure yields absence, never rejection.
	if rf := e.ecoScore.Resolve(record); !rf.Rejected {
		g := rf.Value.(domain.Grade)
		resolved.ecoScore = &g
	}
	if rf := e.nutriscoreGrade.Resolve(record); !rf.Rejected {
		g := rf.Value.(domain.Grade)
		resolved.nutriscoreGrade = &g
	}
	if rf := e.nutriscoreScore.Resolve(record); !rf.Rejected {
		s := rf.Value.(int)
		resolved.nutriscoreScore = &s
	}

	return resolved, nil
}

// requireNutriscore is the engine's single cross-field rule: grade and score
// are individually optional but jointly required.
func requireNutriscore(resolved *resolvedRecord) *domain.RejectionRecord {
	if resolved.nutriscoreGrade != nil || resolved.nutriscoreScore != nil {
		return nil
	}
	return &domain.RejectionRecord{
		Barcode:      resolved.barcode,
		FieldName:    "nutriscore",
		RuleViolated: domain.RuleNutriscoreRequired,
	}
}
