package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration for newsdesk.
type Config struct {
	HTTPPort string
	LogLevel string
	Local    bool

	// EncryptionKey is the base64 AES key for provider credentials; empty disables encryption
	EncryptionKey string

	Database DatabaseConfig
	Redis    RedisConfig
	Usage    UsageConfig
	Provider ProviderConfig
	Search   SearchConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// UsageConfig controls per-model token accounting
type UsageConfig struct {
	Enabled bool
}

// ProviderConfig holds AI provider settings
type ProviderConfig struct {
	RequestTimeout time.Duration // Default timeout for provider requests
}

// SearchConfig holds web search settings
type SearchConfig struct {
	Provider string
	APIKey   string
	Timeout  time.Duration

	// Successful responses are cached; a zero size disables the cache
	CacheSize int
	CacheTTL  time.Duration
}

// LoadDotEnv loads variables from the given files (default .env) without
// overriding the environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "":
		return defaultValue
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		HTTPPort:      getEnvString("HTTP_PORT", "8080"),
		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		Local:         getEnvBool("LOCAL", false),
		EncryptionKey: getEnvString("ENCRYPTION_KEY", ""),
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Usage: UsageConfig{
			Enabled: getEnvBool("USAGE_ENABLED", false),
		},
		Provider: ProviderConfig{
			RequestTimeout: getEnvDuration("PROVIDER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Search: LoadSearch(),
	}

	return cfg, nil
}

// LoadSearch reads the web search settings alone. It does not need a database.
func LoadSearch() SearchConfig {
	return SearchConfig{
		Provider:  strings.ToLower(getEnvString("SEARCH_PROVIDER", "brave")),
		APIKey:    getEnvString("BRAVE_SEARCH_API_KEY", ""),
		Timeout:   getEnvDuration("SEARCH_TIMEOUT", 10*time.Second),
		CacheSize: getEnvInt("SEARCH_CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("SEARCH_CACHE_TTL", 15*time.Minute),
	}
}
