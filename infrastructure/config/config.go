package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	domainconfig "share-note-backend/domain/config"

	"gopkg.in/yaml.v3"
)

// maxTTLSeconds is the largest second count time.Duration can hold
const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

// DevelopmentAPIKey is the API key used when none is configured outside
// production.
const DevelopmentAPIKey = "D3VM0DE"

// Store backends
const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Access
	APIKey             string `yaml:"api_key"`
	FrontendAddress    string `yaml:"frontend_address"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	TrustProxyHeaders  bool   `yaml:"trust_proxy_headers"`

	// Note rules
	DefaultTTLSeconds int    `yaml:"default_ttl_seconds"`
	MaxTTLSeconds     int    `yaml:"max_ttl_seconds"`
	MaxContentBytes   int    `yaml:"max_content_bytes"`
	ReadPolicy        string `yaml:"read_policy"`

	// Store
	StoreBackend          string        `yaml:"store_backend"`
	StoreTimeout          time.Duration `yaml:"store_timeout"`
	SweepInterval         time.Duration `yaml:"sweep_interval"`
	CircuitBreakerEnabled bool          `yaml:"circuit_breaker_enabled"`

	// AWS configuration
	AWSRegion        string `yaml:"aws_region"`
	DynamoDBTable    string `yaml:"dynamodb_table"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
	EventBusName     string `yaml:"event_bus_name"`

	// Redis
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`

	// PostgreSQL
	DatabaseURL string `yaml:"database_url"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Feature flags
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`

	// Lambda configuration
	IsLambda bool `yaml:"-"`
}

// defaultConfig returns the configuration before any file or environment
// overrides.
func defaultConfig() *Config {
	return &Config{
		ServerAddress:         ":8080",
		Environment:           "development",
		FrontendAddress:       "http://localhost:4200",
		RateLimitPerMinute:    60,
		DefaultTTLSeconds:     900,
		MaxTTLSeconds:         86400,
		MaxContentBytes:       64 * 1024,
		ReadPolicy:            string(domainconfig.ReadOnce),
		StoreTimeout:          5 * time.Second,
		SweepInterval:         time.Minute,
		CircuitBreakerEnabled: true,
		AWSRegion:             "us-west-2",
		DynamoDBTable:         "share-notes",
		RedisAddr:             "localhost:6379",
		RedisKeyPrefix:        "share-note:",
		LogLevel:              "info",
	}
}

// LoadConfig loads configuration from defaults, then the optional YAML file
// named by CONFIG_FILE, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadEnvironmentVariables()
	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnvironmentVariables() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.APIKey = getEnv("APP_API_KEY", c.APIKey)
	c.FrontendAddress = getEnv("FRONTEND_ADDRESS", c.FrontendAddress)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", c.TrustProxyHeaders)

	c.DefaultTTLSeconds = getEnvInt("NOTE_DEFAULT_TTL_SECONDS", c.DefaultTTLSeconds)
	c.MaxTTLSeconds = getEnvInt("NOTE_MAX_TTL_SECONDS", c.MaxTTLSeconds)
	c.MaxContentBytes = getEnvInt("NOTE_MAX_CONTENT_BYTES", c.MaxContentBytes)
	c.ReadPolicy = getEnv("NOTE_READ_POLICY", c.ReadPolicy)

	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.StoreTimeout = getEnvDuration("STORE_TIMEOUT", c.StoreTimeout)
	c.SweepInterval = getEnvDuration("SWEEP_INTERVAL", c.SweepInterval)
	c.CircuitBreakerEnabled = getEnvBool("CIRCUIT_BREAKER_ENABLED", c.CircuitBreakerEnabled)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("DYNAMODB_TABLE", c.DynamoDBTable)
	c.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoDBEndpoint)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisKeyPrefix = getEnv("REDIS_KEY_PREFIX", c.RedisKeyPrefix)

	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)

	c.IsLambda = os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// applyEnvironmentDefaults fills settings whose default depends on where
// the process runs.
func (c *Config) applyEnvironmentDefaults() {
	if c.StoreBackend == "" {
		if c.IsDevelopment() {
			c.StoreBackend = BackendMemory
		} else {
			c.StoreBackend = BackendDynamoDB
		}
	}
	if c.APIKey == "" && !c.IsProduction() {
		c.APIKey = DevelopmentAPIKey
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.APIKey == "" || c.APIKey == DevelopmentAPIKey {
			return fmt.Errorf("APP_API_KEY is required in production")
		}
	}
	if c.APIKey == "" {
		return fmt.Errorf("APP_API_KEY is required")
	}
	if c.FrontendAddress == "" {
		return fmt.Errorf("FRONTEND_ADDRESS is required")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}

	if int64(c.DefaultTTLSeconds) > maxTTLSeconds || int64(c.MaxTTLSeconds) > maxTTLSeconds {
		return fmt.Errorf("NOTE_DEFAULT_TTL_SECONDS and NOTE_MAX_TTL_SECONDS must not exceed %d", maxTTLSeconds)
	}
	if err := c.DomainConfig().Validate(); err != nil {
		return fmt.Errorf("invalid note rules: %w", err)
	}

	switch c.StoreBackend {
	case BackendDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb store")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	return nil
}

// DomainConfig returns the note rules carried by this configuration
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	return &domainconfig.DomainConfig{
		DefaultTTL:      time.Duration(c.DefaultTTLSeconds) * time.Second,
		MaxTTL:          time.Duration(c.MaxTTLSeconds) * time.Second,
		MaxContentBytes: c.MaxContentBytes,
		ReadPolicy:      domainconfig.ReadPolicy(c.ReadPolicy),
	}
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("5s") or whole seconds ("5")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
