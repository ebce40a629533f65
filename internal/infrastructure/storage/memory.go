package storage

import (
	"context"
	"sync"

	"github.com/foodscan/backend/internal/domain"
)

// MemoryStore is an in-memory ProductRepository keyed by barcode. Used in
// development and tests; batches upsert like the Supabase store does.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]domain.NormalizedProduct
}

// NewMemoryStore creates an empty in-memory product store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]domain.NormalizedProduct),
	}
}

// SaveBatch upserts every product in the batch by barcode.
func (s *MemoryStore) SaveBatch(ctx context.Context, products []domain.NormalizedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		s.products[p.Barcode] = p
	}
	return nil
}

// GetByBarcode returns a stored product or ErrProductNotFound.
func (s *MemoryStore) GetByBarcode(ctx context.Context, barcode string) (*domain.NormalizedProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[barcode]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

// Len returns the number of stored products.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}
