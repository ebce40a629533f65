package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/foodscan/backend/internal/domain"
)

// ScanServiceConfig holds configuration for the scan service
type ScanServiceConfig struct {
	CacheTTL            time.Duration
	Workers             int
	MaxProductsPerBrand int
	PageSize            int
}

// ScanReport aggregates the outcome of a brand scan for quality reporting:
// how many records were accepted, and rejection counts by field and rule.
type ScanReport struct {
	Brand             string                   `json:"brand"`
	Discovered        int                      `json:"discovered"`
	Accepted          int                      `json:"accepted"`
	Rejected          int                      `json:"rejected"`
	RejectionsByField map[string]int           `json:"rejectionsByField"`
	RejectionsByRule  map[domain.Rule]int      `json:"rejectionsByRule"`
	Rejections        []domain.RejectionRecord `json:"rejections,omitempty"`
}

// ScanService runs the discovery -> validation -> load pipeline: fetch raw
// records from OpenFoodFacts, validate each one through the engine, persist
// accepted products and aggregate rejections.
type ScanService struct {
	cache       domain.CacheRepository
	client      domain.OFFClient
	store       domain.ProductRepository
	engine      *ValidationEngine
	cacheTTL    time.Duration
	workers     int
	maxPerBrand int
	pageSize    int
}

// NewScanService creates a scan service with dependencies
func NewScanService(
	cache domain.CacheRepository,
	client domain.OFFClient,
	store domain.ProductRepository,
	config ScanServiceConfig,
) *ScanService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}
	workers := config.Workers
	if workers <= 0 {
		workers = 4
	}
	maxPerBrand := config.MaxProductsPerBrand
	if maxPerBrand <= 0 {
		maxPerBrand = 500
	}
	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &ScanService{
		cache:       cache,
		client:      client,
		store:       store,
		engine:      NewValidationEngine(),
		cacheTTL:    cacheTTL,
		workers:     workers,
		maxPerBrand: maxPerBrand,
		pageSize:    pageSize,
	}
}

// ValidateRecord runs a single already-materialized raw record through the
// engine. Used by the HTTP validate endpoint.
func (s *ScanService) ValidateRecord(record domain.RawRecord) (*domain.NormalizedProduct, *domain.RejectionRecord, error) {
	return s.engine.Validate(record)
}

// LookupProduct fetches one product by barcode, caches the raw record and
// validates it. Validation is recomputed on cache hits: the engine is a pure
// function, so replaying it is cheaper than persisting its output shape.
func (s *ScanService) LookupProduct(ctx context.Context, barcode string) (*domain.NormalizedProduct, *domain.RejectionRecord, error) {
	if barcode == "" {
		return nil, nil, domain.ErrInvalidRequest
	}

	record, err := s.getRawRecord(ctx, barcode)
	if err != nil {
		return nil, nil, err
	}

	return s.engine.Validate(record)
}

// getRawRecord returns the cached raw record for a barcode, fetching from
// the API on a miss.
func (s *ScanService) getRawRecord(ctx context.Context, barcode string) (domain.RawRecord, error) {
	cacheKey := "raw:" + barcode

	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		if record, ok := cached.(map[string]interface{}); ok {
			return domain.RawRecord(record), nil
		}
	}

	record, err := s.client.GetProduct(ctx, barcode)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, map[string]interface{}(record), s.cacheTTL); err != nil {
		log.Printf("[SCAN] Failed to cache record for %s: %v", barcode, err)
	}

	return record, nil
}

// ScanBrand discovers a brand's products page by page, validates them across
// a bounded worker pool and stores the accepted ones in one batch. Each
// record's validation is independent, so results are collected in whatever
// order the workers finish.
func (s *ScanService) ScanBrand(ctx context.Context, brand string) (*ScanReport, error) {
	if brand == "" {
		return nil, domain.ErrInvalidRequest
	}

	records, err := s.discoverBrand(ctx, brand)
	if err != nil {
		return nil, err
	}

	log.Printf("[SCAN] Brand %q: %d records discovered", brand, len(records))

	accepted, rejections := s.validateAll(records)

	report := &ScanReport{
		Brand:             brand,
		Discovered:        len(records),
		Accepted:          len(accepted),
		Rejected:          len(rejections),
		RejectionsByField: make(map[string]int),
		RejectionsByRule:  make(map[domain.Rule]int),
		Rejections:        rejections,
	}
	for _, r := range rejections {
		report.RejectionsByField[r.FieldName]++
		report.RejectionsByRule[r.RuleViolated]++
	}

	if len(accepted) > 0 {
		if err := s.store.SaveBatch(ctx, accepted); err != nil {
			return report, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
		}
	}

	log.Printf("[SCAN] Brand %q: %d accepted, %d rejected", brand, report.Accepted, report.Rejected)
	return report, nil
}

// discoverBrand pages through the brand search until the page count or the
// per-brand cap is reached.
func (s *ScanService) discoverBrand(ctx context.Context, brand string) ([]domain.RawRecord, error) {
	var records []domain.RawRecord

	for page := 1; len(records) < s.maxPerBrand; page++ {
		result, err := s.client.SearchByBrand(ctx, brand, page, s.pageSize)
		if err != nil {
			return nil, err
		}
		if len(result.Products) == 0 {
			break
		}

		records = append(records, result.Products...)

		if result.PageCount > 0 && page >= result.PageCount {
			break
		}
	}

	if len(records) > s.maxPerBrand {
		records = records[:s.maxPerBrand]
	}
	return records, nil
}

// validateAll fans records out to the worker pool. Validation is pure and
// shares no state across records, so no coordination beyond the channels is
// needed.
func (s *ScanService) validateAll(records []domain.RawRecord) ([]domain.NormalizedProduct, []domain.RejectionRecord) {
	type outcome struct {
		product   *domain.NormalizedProduct
		rejection *domain.RejectionRecord
	}

	jobs := make(chan domain.RawRecord)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range jobs {
				product, rejection, err := s.engine.Validate(record)
				if err != nil {
					// Only a nil record reaches here; skip it.
					continue
				}
				results <- outcome{product: product, rejection: rejection}
			}
		}()
	}

	go func() {
		for _, record := range records {
			jobs <- record
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var accepted []domain.NormalizedProduct
	var rejections []domain.RejectionRecord
	for out := range results {
		if out.product != nil {
			accepted = append(accepted, *out.product)
		} else if out.rejection != nil {
			rejections = append(rejections, *out.rejection)
		}
	}
	return accepted, rejections
}
