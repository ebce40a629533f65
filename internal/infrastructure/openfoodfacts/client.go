package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/foodscan/backend/internal/domain"
	"golang.org/x/time/rate"
)

// requestFields is the fixed field list requested from the API; it covers
// every source path the validation engine's fallback chains read.
const requestFields = "code,product_name,product_name_fr,brands,brands_tags,brands_imported," +
	"categories_tags,nutriscore_grade,nutrition_grades,nutriscore_score,nutriments," +
	"agribalyse,ecoscore_data,ecoscore_grade,ecoscore_score,quantity,product_quantity," +
	"product_quantity_unit"

// Client handles communication with the OpenFoodFacts API
type Client struct {
	httpClient     *http.Client
	baseURL        string
	userAgent      string
	productLimiter *rate.Limiter
	searchLimiter  *rate.Limiter
	debug          bool
}

// NewClient creates a new OpenFoodFacts API client.
// Documented limits: product queries 100/min, search queries 10/min.
func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:        baseURL,
		userAgent:      userAgent,
		productLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
		searchLimiter:  rate.NewLimiter(rate.Every(6*time.Second), 1),
	}
}

// SetDebug enables verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// productResponse is the envelope of /api/v2/product/{barcode}.json.
// Status 1 means found, 0 means unknown barcode.
type productResponse struct {
	Status  int                    `json:"status"`
	Code    string                 `json:"code"`
	Product map[string]interface{} `json:"product"`
}

// searchResponse is the envelope of /api/v2/search.
type searchResponse struct {
	Products  []map[string]interface{} `json:"products"`
	Count     int                      `json:"count"`
	Page      int                      `json:"page"`
	PageSize  int                      `json:"page_size"`
	PageCount int                      `json:"page_count"`
}

// GetProduct retrieves one raw product record by barcode
func (c *Client) GetProduct(ctx context.Context, barcode string) (domain.RawRecord, error) {
	if err := c.productLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(barcode))
	params := url.Values{}
	params.Add("fields", requestFields)
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	body, err := c.doRequestWithRetry(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp productResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.Status != 1 || resp.Product == nil {
		return nil, domain.ErrProductNotFound
	}

	if c.debug {
		log.Printf("[OFF] GetProduct %s: %d fields", barcode, len(resp.Product))
	}

	return domain.RawRecord(resp.Product), nil
}

// SearchByBrand retrieves one page of products for a brand tag
func (c *Client) SearchByBrand(ctx context.Context, brand string, page, pageSize int) (*domain.SearchResult, error) {
	if err := c.searchLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v2/search", c.baseURL)
	params := url.Values{}
	params.Add("brands_tags", brand)
	params.Add("fields", requestFields)
	params.Add("page", strconv.Itoa(page))
	params.Add("page_size", strconv.Itoa(pageSize))
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	body, err := c.doRequestWithRetry(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if c.debug {
		log.Printf("[OFF] SearchByBrand %q page %d: %d products", brand, page, len(resp.Products))
	}

	result := &domain.SearchResult{
		Count:     resp.Count,
		Page:      resp.Page,
		PageSize:  resp.PageSize,
		PageCount: resp.PageCount,
	}
	for _, p := range resp.Products {
		result.Products = append(result.Products, domain.RawRecord(p))
	}
	return result, nil
}

const maxAttempts = 3

// doRequestWithRetry executes a GET with up to maxAttempts attempts, backing
// off between transient failures. 404 is terminal, and the last failure
// returns without sleeping.
func (c *Client) doRequestWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Printf("[OFF] Request error (attempt %d): %v", attempt, err)
			lastErr = fmt.Errorf("%w: %v", domain.ErrOFFAPIFailure, err)
			if attempt < maxAttempts {
				time.Sleep(exponentialBackoff(attempt))
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, domain.ErrProductNotFound
		}
		if resp.StatusCode != http.StatusOK {
			log.Printf("[OFF] API error (attempt %d) - Status: %d", attempt, resp.StatusCode)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrOFFAPIFailure, resp.StatusCode)
			if attempt < maxAttempts {
				time.Sleep(exponentialBackoff(attempt))
			}
			continue
		}

		return body, nil
	}

	return nil, lastErr
}

// exponentialBackoff returns the delay before the next retry attempt.
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(250<<uint(attempt)) * time.Millisecond
}
