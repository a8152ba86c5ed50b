package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Upstream UpstreamConfig
	Scraper  ScraperConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Driver          string // mysql | sqlite
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string // silent | error | warn | info
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

// UpstreamConfig points at the market-data source. The defaults follow the
// public OSRS exchange endpoints; any server speaking the same JSON works.
type UpstreamConfig struct {
	SummaryURL      string
	DetailURL       string
	PricesURL       string
	IconURL         string
	UserAgent       string
	Timeout         time.Duration
	DetailCacheSize int
}

type ScraperConfig struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
	IconDir     string
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "development")

	defaultDriver := "mysql"
	defaultURL := "root:root@tcp(127.0.0.1:3306)/ge_tracker?charset=utf8mb4&parseTime=True&loc=UTC"
	if env == "development" {
		defaultDriver = "sqlite"
		defaultURL = "ge_tracker.db"
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: env,
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DATABASE_DRIVER", defaultDriver)),
			URL:             getEnv("DATABASE_URL", defaultURL),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", time.Hour),
			LogLevel:        getEnv("DATABASE_LOG_LEVEL", "warn"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", ""),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Upstream: UpstreamConfig{
			SummaryURL:      getEnv("UPSTREAM_SUMMARY_URL", "https://rsbuddy.com/exchange/summary.json"),
			DetailURL:       getEnv("UPSTREAM_DETAIL_URL", "https://www.osrsbox.com/osrsbox-db/items-json"),
			PricesURL:       getEnv("UPSTREAM_PRICES_URL", "https://api.rsbuddy.com/grandExchange?a=guidePrice"),
			IconURL:         getEnv("UPSTREAM_ICON_URL", "https://www.osrsbox.com/osrsbox-db/items-icons"),
			UserAgent:       getEnv("UPSTREAM_USER_AGENT", "ge-tracker/1.0"),
			Timeout:         getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
			DetailCacheSize: getEnvInt("UPSTREAM_DETAIL_CACHE_SIZE", 4096),
		},
		Scraper: ScraperConfig{
			Interval:    getEnvDuration("SCRAPER_INTERVAL", 10*time.Minute),
			BatchSize:   getEnvInt("SCRAPER_BATCH_SIZE", 100),
			Concurrency: getEnvInt("SCRAPER_CONCURRENCY", 4),
			IconDir:     getEnv("SCRAPER_ICON_DIR", "./static/icons"),
		},
	}
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
