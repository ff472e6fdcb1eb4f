package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/freshkeep/backend/internal/infrastructure/logging"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	RecipeSource RecipeSourceConfig `mapstructure:"recipe_source"`
	Cache        CacheConfig        `mapstructure:"cache"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	Matching     MatchingConfig     `mapstructure:"matching"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RecipeSourceConfig holds the external recipe search API configuration.
// An empty APIKey disables recipe suggestions.
type RecipeSourceConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RequestsPerHour int           `mapstructure:"requests_per_hour"`
	Burst           int           `mapstructure:"burst"`
	PageSize        int           `mapstructure:"page_size"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	Debug           bool          `mapstructure:"debug"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// MatchingConfig holds recipe matching defaults
type MatchingConfig struct {
	ExpiringThresholdDays int  `mapstructure:"expiring_threshold_days"`
	MaxMissingIngredients int  `mapstructure:"max_missing_ingredients"`
	ResultLimit           int  `mapstructure:"result_limit"`
	MaxSearchTerms        int  `mapstructure:"max_search_terms"`
	DebugLogging          bool `mapstructure:"debug_logging"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/freshkeep/")

	// FRESHKEEP_RECIPE_SOURCE_API_KEY -> recipe_source.api_key
	v.SetEnvPrefix("FRESHKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	v.SetDefault("recipe_source.api_key", "")
	v.SetDefault("recipe_source.base_url", "https://api.recipes.example.com")
	v.SetDefault("recipe_source.timeout", "10s")
	v.SetDefault("recipe_source.requests_per_hour", 1500)
	v.SetDefault("recipe_source.burst", 10)
	v.SetDefault("recipe_source.page_size", 10)
	v.SetDefault("recipe_source.max_concurrency", 4)
	v.SetDefault("recipe_source.debug", false)

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "6h")

	v.SetDefault("ratelimit.per_ip", 100)

	v.SetDefault("matching.expiring_threshold_days", 3)
	v.SetDefault("matching.max_missing_ingredients", 3)
	v.SetDefault("matching.result_limit", 20)
	v.SetDefault("matching.max_search_terms", 5)
	v.SetDefault("matching.debug_logging", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache type is 'redis'")
	}

	if config.RecipeSource.APIKey != "" && config.RecipeSource.BaseURL == "" {
		return fmt.Errorf("recipe source base URL is required when an API key is set")
	}

	positive := []struct {
		name  string
		value int
	}{
		{"recipe_source.requests_per_hour", config.RecipeSource.RequestsPerHour},
		{"recipe_source.burst", config.RecipeSource.Burst},
		{"recipe_source.page_size", config.RecipeSource.PageSize},
		{"recipe_source.max_concurrency", config.RecipeSource.MaxConcurrency},
		{"ratelimit.per_ip", config.RateLimit.PerIP},
		{"matching.result_limit", config.Matching.ResultLimit},
		{"matching.max_search_terms", config.Matching.MaxSearchTerms},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got: %d", p.name, p.value)
		}
	}

	if config.Matching.ExpiringThresholdDays < 0 {
		return fmt.Errorf("matching.expiring_threshold_days must not be negative, got: %d", config.Matching.ExpiringThresholdDays)
	}

	if config.Matching.MaxMissingIngredients < 0 {
		return fmt.Errorf("matching.max_missing_ingredients must not be negative, got: %d", config.Matching.MaxMissingIngredients)
	}

	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		return err
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Logging.Format)
	}

	return nil
}
