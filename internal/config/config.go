package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	CORS       CORSConfig
	Log        LogConfig
	Valuation  ValuationConfig
	Fetch      FetchConfig
	Upstream   UpstreamConfig
	Scheduler  SchedulerConfig
	Benchmarks BenchmarksConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig selects the zerolog level and output format ("json" or "console").
type LogConfig struct {
	Level  string
	Format string
}

// ValuationConfig holds the indexation conventions and plausibility bounds.
type ValuationConfig struct {
	BusinessDaysPerYear float64
	DaysPerMonth        float64
	MaxElapsedDays      int
	LowerBound          float64 // minimum result as a multiple of the entry price
	UpperBound          float64 // maximum result as a multiple of the entry price
	PriceDecimals       int32
}

// FetchConfig bounds how hard upstream providers are hit.
type FetchConfig struct {
	HistoryWorkers    int
	BenchmarkWorkers  int
	QuoteChunkSize    int
	QuoteChunkPause   time.Duration
	RetryAttempts     int
	RetryInitial      time.Duration
	RetryMax          time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPTimeout       time.Duration
	RateCacheTTL      time.Duration
	HistoryCacheTTL   time.Duration
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
}

// UpstreamConfig holds provider endpoints and series identifiers.
type UpstreamConfig struct {
	BCBBaseURL     string
	YahooChartURL  string
	YahooQuoteURL  string
	SelicSeries    int
	CDISeries      int
	CDIDailySeries int
	IPCASeries     int
}

// SchedulerConfig controls the periodic revaluation job.
type SchedulerConfig struct {
	Enabled bool
	Spec    string        // cron expression, evaluated in UTC
	Timeout time.Duration // upper bound for one full run
}

// BenchmarksConfig points at an optional YAML benchmark catalogue.
// An empty path selects the embedded default catalogue.
type BenchmarksConfig struct {
	Path string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/portfolio_valuation.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost",
			}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Valuation: ValuationConfig{
			BusinessDaysPerYear: getEnvFloat("VALUATION_BUSINESS_DAYS_PER_YEAR", 252),
			DaysPerMonth:        getEnvFloat("VALUATION_DAYS_PER_MONTH", 30.44),
			MaxElapsedDays:      getEnvInt("VALUATION_MAX_ELAPSED_DAYS", 3650),
			LowerBound:          getEnvFloat("VALUATION_LOWER_BOUND", 0.2),
			UpperBound:          getEnvFloat("VALUATION_UPPER_BOUND", 20),
			PriceDecimals:       int32(getEnvInt("VALUATION_PRICE_DECIMALS", 4)),
		},
		Fetch: FetchConfig{
			HistoryWorkers:    getEnvInt("FETCH_HISTORY_WORKERS", 5),
			BenchmarkWorkers:  getEnvInt("FETCH_BENCHMARK_WORKERS", 3),
			QuoteChunkSize:    getEnvInt("FETCH_QUOTE_CHUNK_SIZE", 20),
			QuoteChunkPause:   getEnvDuration("FETCH_QUOTE_CHUNK_PAUSE", 500*time.Millisecond),
			RetryAttempts:     getEnvInt("FETCH_RETRY_ATTEMPTS", 3),
			RetryInitial:      getEnvDuration("FETCH_RETRY_INITIAL", 500*time.Millisecond),
			RetryMax:          getEnvDuration("FETCH_RETRY_MAX", 5*time.Second),
			RequestsPerSecond: getEnvFloat("FETCH_REQUESTS_PER_SECOND", 5),
			Burst:             getEnvInt("FETCH_BURST", 10),
			HTTPTimeout:       getEnvDuration("FETCH_HTTP_TIMEOUT", 15*time.Second),
			RateCacheTTL:      getEnvDuration("FETCH_RATE_CACHE_TTL", 30*time.Minute),
			HistoryCacheTTL:   getEnvDuration("FETCH_HISTORY_CACHE_TTL", time.Hour),
			BreakerFailures:   uint32(getEnvInt("FETCH_BREAKER_FAILURES", 5)),
			BreakerTimeout:    getEnvDuration("FETCH_BREAKER_TIMEOUT", time.Minute),
		},
		Upstream: UpstreamConfig{
			BCBBaseURL:     getEnv("BCB_BASE_URL", "https://api.bcb.gov.br/dados/serie"),
			YahooChartURL:  getEnv("YAHOO_CHART_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
			YahooQuoteURL:  getEnv("YAHOO_QUOTE_URL", "https://query1.finance.yahoo.com/v7/finance/quote"),
			SelicSeries:    getEnvInt("BCB_SELIC_SERIES", 432),
			CDISeries:      getEnvInt("BCB_CDI_SERIES", 4389),
			CDIDailySeries: getEnvInt("BCB_CDI_DAILY_SERIES", 12),
			IPCASeries:     getEnvInt("BCB_IPCA_SERIES", 433),
		},
		Scheduler: SchedulerConfig{
			Enabled: getEnvBool("SCHEDULER_ENABLED", false),
			Spec:    getEnv("SCHEDULER_SPEC", "0 19 * * 1-5"),
			Timeout: getEnvDuration("SCHEDULER_TIMEOUT", 10*time.Minute),
		},
		Benchmarks: BenchmarksConfig{
			Path: getEnv("BENCHMARKS_FILE", ""),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	if err := config.Valuation.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns the configuration Load would produce with an empty environment.
func Default() *Config {
	cfg := &Config{}
	cfg.Valuation = ValuationConfig{
		BusinessDaysPerYear: 252,
		DaysPerMonth:        30.44,
		MaxElapsedDays:      3650,
		LowerBound:          0.2,
		UpperBound:          20,
		PriceDecimals:       4,
	}
	cfg.Fetch = FetchConfig{
		HistoryWorkers:    5,
		BenchmarkWorkers:  3,
		QuoteChunkSize:    20,
		QuoteChunkPause:   500 * time.Millisecond,
		RetryAttempts:     3,
		RetryInitial:      500 * time.Millisecond,
		RetryMax:          5 * time.Second,
		RequestsPerSecond: 5,
		Burst:             10,
		HTTPTimeout:       15 * time.Second,
		RateCacheTTL:      30 * time.Minute,
		HistoryCacheTTL:   time.Hour,
		BreakerFailures:   5,
		BreakerTimeout:    time.Minute,
	}
	cfg.Upstream = UpstreamConfig{
		BCBBaseURL:     "https://api.bcb.gov.br/dados/serie",
		YahooChartURL:  "https://query1.finance.yahoo.com/v8/finance/chart",
		YahooQuoteURL:  "https://query1.finance.yahoo.com/v7/finance/quote",
		SelicSeries:    432,
		CDISeries:      4389,
		CDIDailySeries: 12,
		IPCASeries:     433,
	}
	cfg.Scheduler = SchedulerConfig{
		Spec:    "0 19 * * 1-5",
		Timeout: 10 * time.Minute,
	}
	return cfg
}

func (v ValuationConfig) validate() error {
	if v.BusinessDaysPerYear <= 0 || v.DaysPerMonth <= 0 {
		return fmt.Errorf("valuation day conventions must be positive")
	}
	if v.MaxElapsedDays <= 0 {
		return fmt.Errorf("VALUATION_MAX_ELAPSED_DAYS must be positive")
	}
	if v.LowerBound <= 0 || v.UpperBound <= v.LowerBound {
		return fmt.Errorf("valuation bounds must satisfy 0 < lower < upper")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
