package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/foodscan/backend/internal/domain"
)

// productRow is the products table shape. Derived columns are stored
// alongside their inputs but are always written together from one
// NormalizedProduct, so they stay consistent at rest.
type productRow struct {
	Barcode             string   `json:"barcode"`
	ProductName         string   `json:"product_name"`
	BrandName           string   `json:"brand_name"`
	BrandTags           []string `json:"brand_tags,omitempty"`
	Weight              float64  `json:"weight"`
	ProductQuantityUnit string   `json:"product_quantity_unit"`
	NutriscoreGrade     *string  `json:"nutriscore_grade,omitempty"`
	NutriscoreScore     *int     `json:"nutriscore_score,omitempty"`
	EcoScore            *string  `json:"eco_score,omitempty"`
	CO2Total            float64  `json:"co2_total"`
	TotalCO2ImpactGrams float64  `json:"total_co2_impact_grams"`
	CO2VehicleKm        float64  `json:"co2_vehicle_km"`
	CO2TrainKm          float64  `json:"co2_train_km"`
	CO2BusKm            float64  `json:"co2_bus_km"`
	CO2PlaneKm          float64  `json:"co2_plane_km"`
	ImpactLevel         string   `json:"impact_level"`
}

// SupabaseStore persists products through the Supabase PostgREST API with
// batched upserts and per-batch retry.
type SupabaseStore struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
	table      string
	batchSize  int
	maxRetries int
}

// NewSupabaseStore creates a Supabase-backed product store
func NewSupabaseStore(baseURL, serviceKey, table string, batchSize int) *SupabaseStore {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SupabaseStore{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    baseURL,
		serviceKey: serviceKey,
		table:      table,
		batchSize:  batchSize,
		maxRetries: 3,
	}
}

// SaveBatch splits the products into batches and upserts each one on the
// barcode key. A batch that still fails after retries fails the whole call.
func (s *SupabaseStore) SaveBatch(ctx context.Context, products []domain.NormalizedProduct) error {
	for start := 0; start < len(products); start += s.batchSize {
		end := start + s.batchSize
		if end > len(products) {
			end = len(products)
		}

		rows := make([]productRow, 0, end-start)
		for _, p := range products[start:end] {
			rows = append(rows, toRow(p))
		}

		if err := s.upsertBatch(ctx, rows); err != nil {
			return fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// upsertBatch POSTs one batch with merge-duplicates resolution, retrying
// transient failures with backoff.
func (s *SupabaseStore) upsertBatch(ctx context.Context, rows []productRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, url.PathEscape(s.table))

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		s.setHeaders(req)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			log.Printf("[SUPABASE] Upsert error (attempt %d): %v", attempt, err)
			lastErr = fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
			if attempt < s.maxRetries {
				time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		log.Printf("[SUPABASE] Upsert failed (attempt %d) - Status: %d, Body: %s", attempt, resp.StatusCode, string(body))
		lastErr = fmt.Errorf("%w: status %d", domain.ErrStorageFailure, resp.StatusCode)

		// Client errors other than rate limiting will not succeed on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return lastErr
		}
		if attempt < s.maxRetries {
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
		}
	}
	return lastErr
}

// GetByBarcode reads one row back through PostgREST.
func (s *SupabaseStore) GetByBarcode(ctx context.Context, barcode string) (*domain.NormalizedProduct, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, url.PathEscape(s.table))
	params := url.Values{}
	params.Add("barcode", "eq."+barcode)
	params.Add("limit", "1")
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrStorageFailure, resp.StatusCode)
	}

	var rows []productRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrProductNotFound
	}

	product := fromRow(rows[0])
	return &product, nil
}

func (s *SupabaseStore) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Accept", "application/json")
}

func toRow(p domain.NormalizedProduct) productRow {
	row := productRow{
		Barcode:             p.Barcode,
		ProductName:         p.ProductName,
		BrandName:           p.BrandName,
		BrandTags:           p.BrandTags,
		Weight:              p.WeightGrams,
		ProductQuantityUnit: string(p.QuantityUnit),
		CO2Total:            p.CO2PerHundredGrams,
		TotalCO2ImpactGrams: p.Metrics.TotalCO2ImpactGrams,
		CO2VehicleKm:        p.Metrics.CO2VehicleKm,
		CO2TrainKm:          p.Metrics.CO2TrainKm,
		CO2BusKm:            p.Metrics.CO2BusKm,
		CO2PlaneKm:          p.Metrics.CO2PlaneKm,
		ImpactLevel:         string(p.Metrics.ImpactLevel),
	}
	if p.NutriscoreGrade != nil {
		g := string(*p.NutriscoreGrade)
		row.NutriscoreGrade = &g
	}
	if p.NutriscoreScore != nil {
		score := *p.NutriscoreScore
		row.NutriscoreScore = &score
	}
	if p.EcoScore != nil {
		g := string(*p.EcoScore)
		row.EcoScore = &g
	}
	return row
}

func fromRow(row productRow) domain.NormalizedProduct {
	p := domain.NormalizedProduct{
		Barcode:            row.Barcode,
		ProductName:        row.ProductName,
		BrandName:          row.BrandName,
		BrandTags:          row.BrandTags,
		WeightGrams:        row.Weight,
		QuantityUnit:       domain.QuantityUnit(row.ProductQuantityUnit),
		CO2PerHundredGrams: row.CO2Total,
		Metrics: domain.DerivedMetrics{
			TotalCO2ImpactGrams: row.TotalCO2ImpactGrams,
			CO2VehicleKm:        row.CO2VehicleKm,
			CO2TrainKm:          row.CO2TrainKm,
			CO2BusKm:            row.CO2BusKm,
			CO2PlaneKm:          row.CO2PlaneKm,
			ImpactLevel:         domain.ImpactLevel(row.ImpactLevel),
		},
	}
	if row.NutriscoreGrade != nil {
		g := domain.Grade(*row.NutriscoreGrade)
		p.NutriscoreGrade = &g
	}
	if row.NutriscoreScore != nil {
		score := *row.NutriscoreScore
		p.NutriscoreScore = &score
	}
	if row.EcoScore != nil {
		g := domain.Grade(*row.EcoScore)
		p.EcoScore = &g
	}
	return p
}
