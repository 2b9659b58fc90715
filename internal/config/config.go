package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	ServiceKey         string
	RateLimitPerMinute int

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// AMQP. An empty URL runs sync inline in the API process.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Currency
	BaseCurrency     string
	ExchangeAPIURL   string
	ExchangeTimeout  time.Duration
	ExchangeCacheTTL time.Duration

	// Cycles
	KickstartPolicy string
	DeletionPolicy  string
	SyncConcurrency int
	SyncTimeout     time.Duration

	LogLevel string
}

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		ServiceKey:         getEnv("SERVICE_KEY", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fincycle.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fincycle"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "cycle_sync"),

		BaseCurrency:     strings.ToUpper(getEnv("BASE_CURRENCY", "BRL")),
		ExchangeAPIURL:   getEnv("EXCHANGE_API_URL", ""),
		ExchangeTimeout:  getEnvDuration("EXCHANGE_TIMEOUT", 10*time.Second),
		ExchangeCacheTTL: getEnvDuration("EXCHANGE_CACHE_TTL", 15*time.Minute),

		KickstartPolicy: getEnv("KICKSTART_POLICY", "reject"),
		DeletionPolicy:  getEnv("DELETION_POLICY", "ignore"),
		SyncConcurrency: getEnvInt("SYNC_CONCURRENCY", 4),
		SyncTimeout:     getEnvDuration("SYNC_TIMEOUT", time.Minute),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	return cfg
}

// Validate reports every problem of the API configuration at once.
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateWorker checks the sync worker configuration. The service key is
// not used, while the broker and a store shared with the API are mandatory.
func (c *Config) ValidateWorker() error {
	var errs []string
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the sync worker")
	}
	if c.DataBackend == "memory" {
		errs = append(errs, "the sync worker needs a shared store: DATA_BACKEND must be sqlite or postgres")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return c.validate(false)
}

func (c *Config) validate(api bool) error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if api && len(c.ServiceKey) < 16 {
		errors = append(errors, "SERVICE_KEY must be at least 16 characters")
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	validBackends := []string{"memory", "sqlite", "postgres"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: must be a postgres:// URL")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !currencyCode.MatchString(c.BaseCurrency) {
		errors = append(errors, fmt.Sprintf("invalid base currency '%s': must be a 3 letter code", c.BaseCurrency))
	}
	if c.ExchangeAPIURL == "" {
		errors = append(errors, "EXCHANGE_API_URL is required")
	} else if u, err := url.Parse(c.ExchangeAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("invalid exchange API URL '%s': must be http or https", c.ExchangeAPIURL))
	}
	if c.ExchangeTimeout < 100*time.Millisecond || c.ExchangeTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid exchange timeout %v: must be between 100ms and 1m", c.ExchangeTimeout))
	}
	if c.ExchangeCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid exchange cache TTL %v: must not be negative", c.ExchangeCacheTTL))
	}

	if c.KickstartPolicy != "reject" && c.KickstartPolicy != "noop" {
		errors = append(errors, fmt.Sprintf("invalid kickstart policy '%s': must be reject or noop", c.KickstartPolicy))
	}
	if c.DeletionPolicy != "ignore" && c.DeletionPolicy != "prune" {
		errors = append(errors, fmt.Sprintf("invalid deletion policy '%s': must be ignore or prune", c.DeletionPolicy))
	}
	if c.SyncConcurrency < 1 || c.SyncConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid sync concurrency %d: must be between 1 and 64", c.SyncConcurrency))
	}
	if c.SyncTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync timeout %v: must be at least 1 second", c.SyncTimeout))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
