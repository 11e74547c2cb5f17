// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aristath/tradepath/internal/clients/twelvedata"
	"github.com/aristath/tradepath/internal/modules/planning/graph"
	"github.com/aristath/tradepath/internal/modules/simulation"
	"github.com/aristath/tradepath/internal/reliability"
	"github.com/joho/godotenv"
)

// Price providers
const (
	ProviderTwelveData = "twelvedata"
	ProviderYahoo      = "yahoo"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for all databases, always absolute
	LogLevel  string
	Port      int
	LogPretty bool

	// Price data
	PriceProvider         string
	TwelveDataAPIKey      string
	TwelveDataBaseURL     string
	YahooBaseURL          string
	ProviderRatePerMinute int
	PriceCacheTTL         time.Duration // 0 selects the closed/open window TTLs

	// Simulation
	AllocationLimit   float64
	WarmupFrames      int
	SearchMaxPops     int
	NormalizeScale    float64
	SellAtOnce        bool
	UseMarketContext  bool
	MaxGraphNodes     int
	MaxSymbols        int
	MaxConcurrentRuns int
	UniverseFile      string // Optional YAML catalog replacing the embedded one

	// Artifact export, disabled without a bucket
	Artifacts reliability.S3Config

	// Cron schedules (with seconds field)
	CacheCleanupSchedule string
	MaintenanceSchedule  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:   absDataDir,
		Port:      getEnvAsInt("PORT", 8080),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),

		PriceProvider:         getEnv("PRICE_PROVIDER", ProviderTwelveData),
		TwelveDataAPIKey:      getEnv("TWELVEDATA_API_KEY", ""),
		TwelveDataBaseURL:     getEnv("TWELVEDATA_BASE_URL", twelvedata.DefaultBaseURL),
		YahooBaseURL:          getEnv("YAHOO_BASE_URL", ""),
		ProviderRatePerMinute: getEnvAsInt("PROVIDER_RATE_PER_MINUTE", twelvedata.DefaultRatePerMinute),
		PriceCacheTTL:         time.Duration(getEnvAsInt("PRICE_CACHE_TTL_HOURS", 0)) * time.Hour,

		AllocationLimit:   getEnvAsFloat("ALLOCATION_LIMIT", 0.2),
		WarmupFrames:      getEnvAsInt("WARMUP_FRAMES", simulation.MinWarmupFrames),
		SearchMaxPops:     getEnvAsInt("SEARCH_MAX_POPS", 0),
		NormalizeScale:    getEnvAsFloat("NORMALIZE_SCALE", 1.0),
		SellAtOnce:        getEnvAsBool("SELL_AT_ONCE", false),
		UseMarketContext:  getEnvAsBool("USE_MARKET_CONTEXT", false),
		MaxGraphNodes:     getEnvAsInt("MAX_GRAPH_NODES", graph.DefaultMaxNodes),
		MaxSymbols:        getEnvAsInt("MAX_SYMBOLS", simulation.DefaultMaxSymbols),
		MaxConcurrentRuns: getEnvAsInt("MAX_CONCURRENT_RUNS", 2),
		UniverseFile:      getEnv("UNIVERSE_FILE", ""),

		Artifacts: reliability.S3Config{
			Bucket:          getEnv("ARTIFACT_BUCKET", ""),
			Endpoint:        getEnv("ARTIFACT_ENDPOINT", ""),
			Region:          getEnv("ARTIFACT_REGION", "auto"),
			AccessKeyID:     getEnv("ARTIFACT_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARTIFACT_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("ARTIFACT_PREFIX", reliability.DefaultPrefix),
		},

		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 * * * *"),
		MaintenanceSchedule:  getEnv("MAINTENANCE_SCHEDULE", "0 0 3 * * *"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and in range
func (c *Config) Validate() error {
	switch c.PriceProvider {
	case ProviderTwelveData:
		if c.TwelveDataAPIKey == "" {
			return fmt.Errorf("TWELVEDATA_API_KEY is required when PRICE_PROVIDER=%s", ProviderTwelveData)
		}
	case ProviderYahoo:
	default:
		return fmt.Errorf("unknown PRICE_PROVIDER %q (want %s or %s)", c.PriceProvider, ProviderTwelveData, ProviderYahoo)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.AllocationLimit <= 0 || c.AllocationLimit > 1 {
		return fmt.Errorf("ALLOCATION_LIMIT must be in (0, 1], got %v", c.AllocationLimit)
	}
	if c.WarmupFrames < simulation.MinWarmupFrames {
		return fmt.Errorf("WARMUP_FRAMES must be at least %d, got %d", simulation.MinWarmupFrames, c.WarmupFrames)
	}
	if c.SearchMaxPops < 0 {
		return fmt.Errorf("SEARCH_MAX_POPS must not be negative")
	}
	if c.NormalizeScale <= 0 {
		return fmt.Errorf("NORMALIZE_SCALE must be positive")
	}
	if c.MaxGraphNodes <= 0 {
		return fmt.Errorf("MAX_GRAPH_NODES must be positive")
	}
	if c.MaxSymbols <= 0 {
		return fmt.Errorf("MAX_SYMBOLS must be positive")
	}
	if c.ProviderRatePerMinute <= 0 {
		return fmt.Errorf("PROVIDER_RATE_PER_MINUTE must be positive")
	}
	if c.Artifacts.Bucket != "" && c.Artifacts.AccessKeyID != "" && c.Artifacts.SecretAccessKey == "" {
		return fmt.Errorf("ARTIFACT_SECRET_ACCESS_KEY is required with ARTIFACT_ACCESS_KEY_ID")
	}

	return nil
}

// Simulation builds the runner configuration
func (c *Config) Simulation() simulation.Config {
	sim := simulation.DefaultConfig()
	sim.WarmupFrames = c.WarmupFrames
	sim.MaxSymbols = c.MaxSymbols
	sim.Planner.Menu.AllocationLimit = c.AllocationLimit
	sim.Planner.Search.MaxPops = c.SearchMaxPops
	sim.Planner.Search.NormalizeScale = c.NormalizeScale
	sim.Planner.Graph.SellAtOnce = c.SellAtOnce
	sim.Planner.Graph.MaxNodes = c.MaxGraphNodes
	sim.Planner.UseMarketContext = c.UseMarketContext
	return sim
}

// DatabasePath returns the path of a named database in the data directory
func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.DataDir, name+".db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
