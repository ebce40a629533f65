package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	OpenFoodFacts OpenFoodFactsConfig
	Cache         CacheConfig
	Storage       StorageConfig
	Pipeline      PipelineConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// OpenFoodFactsConfig holds OpenFoodFacts API configuration
type OpenFoodFactsConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// StorageConfig holds product store configuration
type StorageConfig struct {
	Type        string `mapstructure:"type"` // "memory" or "supabase"
	SupabaseURL string `mapstructure:"supabase_url"`
	SupabaseKey string `mapstructure:"supabase_key"`
	Table       string `mapstructure:"table"`
	BatchSize   int    `mapstructure:"batch_size"`
}

// PipelineConfig holds scan pipeline configuration
type PipelineConfig struct {
	Workers             int `mapstructure:"workers"`
	MaxProductsPerBrand int `mapstructure:"max_products_per_brand"`
	PageSize            int `mapstructure:"page_size"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/foodscan/")

	// Environment variable settings
	v.SetEnvPrefix("FOODSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// OpenFoodFacts defaults
	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("openfoodfacts.user_agent", "Foodscan/1.0")

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")

	// Storage defaults. The empty supabase defaults register the keys with
	// viper so AutomaticEnv can bind FOODSCAN_STORAGE_SUPABASE_URL/_KEY.
	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.supabase_url", "")
	v.SetDefault("storage.supabase_key", "")
	v.SetDefault("storage.table", "products")
	v.SetDefault("storage.batch_size", 50)

	// Pipeline defaults
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.max_products_per_brand", 500)
	v.SetDefault("pipeline.page_size", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Storage.Type != "memory" && config.Storage.Type != "supabase" {
		return fmt.Errorf("storage type must be 'memory' or 'supabase', got: %s", config.Storage.Type)
	}

	if config.Storage.Type == "supabase" {
		if config.Storage.SupabaseURL == "" {
			return fmt.Errorf("Supabase URL is required when storage type is 'supabase' (set FOODSCAN_STORAGE_SUPABASE_URL)")
		}
		if config.Storage.SupabaseKey == "" {
			return fmt.Errorf("Supabase service key is required when storage type is 'supabase' (set FOODSCAN_STORAGE_SUPABASE_KEY)")
		}
	}

	if config.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline workers must be positive, got: %d", config.Pipeline.Workers)
	}

	return nil
}
