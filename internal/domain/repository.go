package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// OFFClient defines the interface for retrieving raw records from the
// OpenFoodFacts API
type OFFClient interface {
	GetProduct(ctx context.Context, barcode string) (RawRecord, error)
	SearchByBrand(ctx context.Context, brand string, page, pageSize int) (*SearchResult, error)
}

// SearchResult is one page of an OpenFoodFacts brand search.
type SearchResult struct {
	Products  []RawRecord `json:"products"`
	Count     int         `json:"count"`
	Page      int         `json:"page"`
	PageSize  int         `json:"page_size"`
	PageCount int         `json:"page_count"`
}

// ProductRepository defines the interface for persisting accepted products.
// Implementations own uniqueness-at-rest (upsert on barcode); the engine only
// validates local field shape.
type ProductRepository interface {
	SaveBatch(ctx context.Context, products []NormalizedProduct) error
	GetByBarcode(ctx context.Context, barcode string) (*NormalizedProduct, error)
}
