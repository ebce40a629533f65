package main

import (
	"fmt"
	"log"
	"os"

	"github.com/foodscan/backend/config"
	httpDelivery "github.com/foodscan/backend/internal/delivery/http"
	"github.com/foodscan/backend/internal/domain"
	"github.com/foodscan/backend/internal/infrastructure/cache"
	"github.com/foodscan/backend/internal/infrastructure/openfoodfacts"
	"github.com/foodscan/backend/internal/infrastructure/storage"
	"github.com/foodscan/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Foodscan Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Storage: %s", cfg.Storage.Type)

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCache()
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	offClient := openfoodfacts.NewClient(cfg.OpenFoodFacts.BaseURL, cfg.OpenFoodFacts.UserAgent)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		offClient.SetDebug(true)
		log.Printf("OpenFoodFacts client debug mode enabled")
	}
	log.Printf("OpenFoodFacts API: %s (UA: %s)", cfg.OpenFoodFacts.BaseURL, cfg.OpenFoodFacts.UserAgent)

	var store domain.ProductRepository
	if cfg.Storage.Type == "supabase" {
		store = storage.NewSupabaseStore(
			cfg.Storage.SupabaseURL,
			cfg.Storage.SupabaseKey,
			cfg.Storage.Table,
			cfg.Storage.BatchSize,
		)
		log.Printf("Supabase storage: %s table=%s batch=%d", cfg.Storage.SupabaseURL, cfg.Storage.Table, cfg.Storage.BatchSize)
	} else {
		store = storage.NewMemoryStore()
	}

	// Initialize usecase layer
	scanService := usecase.NewScanService(
		memoryCache,
		offClient,
		store,
		usecase.ScanServiceConfig{
			CacheTTL:            cfg.Cache.TTL,
			Workers:             cfg.Pipeline.Workers,
			MaxProductsPerBrand: cfg.Pipeline.MaxProductsPerBrand,
			PageSize:            cfg.Pipeline.PageSize,
		},
	)

	log.Printf("Pipeline: workers=%d, max_per_brand=%d, page_size=%d",
		cfg.Pipeline.Workers,
		cfg.Pipeline.MaxProductsPerBrand,
		cfg.Pipeline.PageSize)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(scanService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
