package usecase

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/foodscan/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled int
	setCalled int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.getCalled++
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setCalled++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockOFFClient is a mock implementation of domain.OFFClient
type MockOFFClient struct {
	products      map[string]domain.RawRecord
	productError  error
	searchPages   []*domain.SearchResult
	searchError   error
	productCalled int
	searchCalled  int
}

func NewMockOFFClient() *MockOFFClient {
	return &MockOFFClient{
		products: make(map[string]domain.RawRecord),
	}
}

func (m *MockOFFClient) GetProduct(ctx context.Context, barcode string) (domain.RawRecord, error) {
	m.productCalled++
	if m.productError != nil {
		return nil, m.productError
	}
	if record, ok := m.products[barcode]; ok {
		return record, nil
	}
	return nil, domain.ErrProductNotFound
}

func (m *MockOFFClient) SearchByBrand(ctx context.Context, brand string, page, pageSize int) (*domain.SearchResult, error) {
	m.searchCalled++
	if m.searchError != nil {
		return nil, m.searchError
	}
	if page > len(m.searchPages) {
		return &domain.SearchResult{Page: page}, nil
	}
	return m.searchPages[page-1], nil
}

// MockProductRepository is a mock implementation of domain.ProductRepository
type MockProductRepository struct {
	saved     []domain.NormalizedProduct
	saveError error
	saveCalls int
}

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{}
}

func (m *MockProductRepository) SaveBatch(ctx context.Context, products []domain.NormalizedProduct) error {
	m.saveCalls++
	if m.saveError != nil {
		return m.saveError
	}
	m.saved = append(m.saved, products...)
	return nil
}

func (m *MockProductRepository) GetByBarcode(ctx context.Context, barcode string) (*domain.NormalizedProduct, error) {
	for i := range m.saved {
		if m.saved[i].Barcode == barcode {
			return &m.saved[i], nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func newTestScanService(cache *MockCacheRepository, client *MockOFFClient, store *MockProductRepository) *ScanService {
	return NewScanService(cache, client, store, ScanServiceConfig{
		Workers:             2,
		MaxProductsPerBrand: 10,
		PageSize:            2,
	})
}

// brandRecord builds a valid raw record for a brand scan fixture.
func brandRecord(barcode string) domain.RawRecord {
	return domain.RawRecord{
		"code":             barcode,
		"product_name":     "Product " + barcode,
		"brands":           "Ferrero",
		"quantity":         "200g",
		"nutriscore_grade": "c",
		"agribalyse":       map[string]interface{}{"co2_total": 100.0},
	}
}

func TestLookupProduct(t *testing.T) {
	t.Run("fetches, caches and validates", func(t *testing.T) {
		cache := NewMockCacheRepository()
		client := NewMockOFFClient()
		store := NewMockProductRepository()
		client.products["3017620422003"] = nutellaRecord()

		service := newTestScanService(cache, client, store)

		product, rejection, err := service.LookupProduct(context.Background(), "3017620422003")
		if err != nil {
			t.Fatalf("LookupProduct() error = %v", err)
		}
		if rejection != nil {
			t.Fatalf("unexpected rejection: %+v", rejection)
		}
		if product.Barcode != "3017620422003" {
			t.Errorf("Barcode = %v", product.Barcode)
		}
		if client.productCalled != 1 {
			t.Errorf("GetProduct called %d times, want 1", client.productCalled)
		}
		if cache.setCalled != 1 {
			t.Errorf("cache Set called %d times, want 1", cache.setCalled)
		}
	})

	t.Run("second lookup hits the cache", func(t *testing.T) {
		cache := NewMockCacheRepository()
		client := NewMockOFFClient()
		store := NewMockProductRepository()
		client.products["3017620422003"] = nutellaRecord()

		service := newTestScanService(cache, client, store)

		for i := 0; i < 2; i++ {
			if _, _, err := service.LookupProduct(context.Background(), "3017620422003"); err != nil {
				t.Fatalf("LookupProduct() #%d error = %v", i+1, err)
			}
		}
		if client.productCalled != 1 {
			t.Errorf("GetProduct called %d times, want 1", client.productCalled)
		}
	})

	t.Run("rejected record surfaces its rejection", func(t *testing.T) {
		cache := NewMockCacheRepository()
		client := NewMockOFFClient()
		store := NewMockProductRepository()
		bad := nutellaRecord()
		bad["quantity"] = "0g"
		client.products["3017620422003"] = bad

		service := newTestScanService(cache, client, store)

		_, rejection, err := service.LookupProduct(context.Background(), "3017620422003")
		if err != nil {
			t.Fatalf("LookupProduct() error = %v", err)
		}
		if rejection == nil {
			t.Fatal("expected rejection")
		}
		if rejection.RuleViolated != domain.RuleRangeViolation {
			t.Errorf("RuleViolated = %v, want range_violation", rejection.RuleViolated)
		}
	})

	t.Run("missing product propagates not found", func(t *testing.T) {
		service := newTestScanService(NewMockCacheRepository(), NewMockOFFClient(), NewMockProductRepository())

		_, _, err := service.LookupProduct(context.Background(), "99999999")
		if !errors.Is(err, domain.ErrProductNotFound) {
			t.Errorf("error = %v, want ErrProductNotFound", err)
		}
	})

	t.Run("empty barcode is an invalid request", func(t *testing.T) {
		service := newTestScanService(NewMockCacheRepository(), NewMockOFFClient(), NewMockProductRepository())

		_, _, err := service.LookupProduct(context.Background(), "")
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("cache failure falls through to the API", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.getError = errors.New("redis down")
		client := NewMockOFFClient()
		client.products["3017620422003"] = nutellaRecord()

		service := newTestScanService(cache, client, NewMockProductRepository())

		if _, _, err := service.LookupProduct(context.Background(), "3017620422003"); err != nil {
			t.Fatalf("LookupProduct() error = %v", err)
		}
		if client.productCalled != 1 {
			t.Errorf("GetProduct called %d times, want 1", client.productCalled)
		}
	})
}

func TestScanBrand(t *testing.T) {
	t.Run("aggregates accepts and rejections", func(t *testing.T) {
		client := NewMockOFFClient()
		rejected := brandRecord("30000000")
		rejected["quantity"] = "une plaquette"
		client.searchPages = []*domain.SearchResult{
			{
				Products:  []domain.RawRecord{brandRecord("10000000"), brandRecord("20000000")},
				PageCount: 2,
			},
			{
				Products:  []domain.RawRecord{rejected},
				PageCount: 2,
			},
		}
		store := NewMockProductRepository()
		service := newTestScanService(NewMockCacheRepository(), client, store)

		report, err := service.ScanBrand(context.Background(), "ferrero")
		if err != nil {
			t.Fatalf("ScanBrand() error = %v", err)
		}

		if report.Discovered != 3 {
			t.Errorf("Discovered = %d, want 3", report.Discovered)
		}
		if report.Accepted != 2 {
			t.Errorf("Accepted = %d, want 2", report.Accepted)
		}
		if report.Rejected != 1 {
			t.Errorf("Rejected = %d, want 1", report.Rejected)
		}
		if report.RejectionsByField["weight"] != 1 {
			t.Errorf("RejectionsByField = %v, want weight:1", report.RejectionsByField)
		}
		if report.RejectionsByRule[domain.RuleParseFailure] != 1 {
			t.Errorf("RejectionsByRule = %v, want parse_failure:1", report.RejectionsByRule)
		}
		if len(store.saved) != 2 {
			t.Errorf("stored %d products, want 2", len(store.saved))
		}
		if store.saveCalls != 1 {
			t.Errorf("SaveBatch called %d times, want 1", store.saveCalls)
		}
	})

	t.Run("stops at the per-brand cap", func(t *testing.T) {
		client := NewMockOFFClient()
		var pages []*domain.SearchResult
		barcode := 10000000
		for p := 0; p < 10; p++ {
			page := &domain.SearchResult{PageCount: 10}
			for i := 0; i < 2; i++ {
				page.Products = append(page.Products, brandRecord(strconv.Itoa(barcode)))
				barcode++
			}
			pages = append(pages, page)
		}
		client.searchPages = pages
		service := newTestScanService(NewMockCacheRepository(), client, NewMockProductRepository())

		report, err := service.ScanBrand(context.Background(), "ferrero")
		if err != nil {
			t.Fatalf("ScanBrand() error = %v", err)
		}
		if report.Discovered != 10 {
			t.Errorf("Discovered = %d, want the cap of 10", report.Discovered)
		}
	})

	t.Run("empty search yields an empty report", func(t *testing.T) {
		client := NewMockOFFClient()
		client.searchPages = []*domain.SearchResult{{}}
		store := NewMockProductRepository()
		service := newTestScanService(NewMockCacheRepository(), client, store)

		report, err := service.ScanBrand(context.Background(), "unknownbrand")
		if err != nil {
			t.Fatalf("ScanBrand() error = %v", err)
		}
		if report.Discovered != 0 || report.Accepted != 0 || report.Rejected != 0 {
			t.Errorf("report = %+v, want empty", report)
		}
		if store.saveCalls != 0 {
			t.Errorf("SaveBatch called %d times, want 0", store.saveCalls)
		}
	})

	t.Run("search failure aborts the scan", func(t *testing.T) {
		client := NewMockOFFClient()
		client.searchError = errors.New("upstream 500")
		service := newTestScanService(NewMockCacheRepository(), client, NewMockProductRepository())

		if _, err := service.ScanBrand(context.Background(), "ferrero"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("storage failure returns the report alongside the error", func(t *testing.T) {
		client := NewMockOFFClient()
		client.searchPages = []*domain.SearchResult{
			{Products: []domain.RawRecord{brandRecord("10000000")}, PageCount: 1},
		}
		store := NewMockProductRepository()
		store.saveError = errors.New("connection refused")
		service := newTestScanService(NewMockCacheRepository(), client, store)

		report, err := service.ScanBrand(context.Background(), "ferrero")
		if !errors.Is(err, domain.ErrStorageFailure) {
			t.Errorf("error = %v, want ErrStorageFailure", err)
		}
		if report == nil || report.Accepted != 1 {
			t.Errorf("report = %+v, want the aggregated report", report)
		}
	})

	t.Run("empty brand is an invalid request", func(t *testing.T) {
		service := newTestScanService(NewMockCacheRepository(), NewMockOFFClient(), NewMockProductRepository())

		if _, err := service.ScanBrand(context.Background(), ""); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Error("expected ErrInvalidRequest")
		}
	})
}
