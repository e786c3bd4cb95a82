package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by STORE_BACKEND and CATALOG_BACKEND
const (
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	InstanceID     string

	// Storage selection
	Store StoreConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Admission engine
	Admission AdmissionConfig

	// Payment outcome source
	Payment PaymentConfig

	// Client credentials
	Auth AuthConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Kafka fan-out and domain events
	Kafka KafkaConfig

	// Prometheus
	Metrics MetricsConfig

	// Logging
	LogLevel string
}

// StoreConfig selects the backing stores
type StoreConfig struct {
	// Admission state: queue, tokens, seat locks (redis|memory)
	Backend string
	// Catalog, reservations, payments, oauth clients (postgres|memory)
	CatalogBackend string
	// Load the fixture catalog into the memory backend on boot
	SeedMemory bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	CacheTTL time.Duration
}

// AdmissionConfig holds queue, token, lock and scheduler settings
type AdmissionConfig struct {
	TokenTTL               time.Duration
	SeatLockTTL            time.Duration
	SchedulerInterval      time.Duration
	BroadcastLimit         int
	AvgProcessingSeconds   int
	SchedulerLeaderLock    bool
	SchedulerLeaderLeaseMs int
	SSETimeout             time.Duration
	SSEBuffer              int
}

// PaymentConfig holds mock payment gateway settings
type PaymentConfig struct {
	SuccessRate float64
}

// AuthConfig holds OAuth2 client-credentials configuration
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	Issuer    string
	// Bootstrap client created on boot when set
	BootstrapClientID     string
	BootstrapClientSecret string
	BootstrapClientScopes string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	PublicRequests  int           `json:"public_requests"`
	QueueRequests   int           `json:"queue_requests"`
	SeatRequests    int           `json:"seat_requests"`
	PaymentRequests int           `json:"payment_requests"`
	AuthRequests    int           `json:"auth_requests"`
	HealthRequests  int           `json:"health_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	PushTopic   string
	DomainTopic string
	GroupPrefix string
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", ""),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		// SSE streams stay open; the per-stream timeout is Admission.SSETimeout
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 0),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB
		InstanceID:     getEnv("INSTANCE_ID", defaultInstanceID()),

		Store: StoreConfig{
			Backend:        strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
			CatalogBackend: strings.ToLower(getEnv("CATALOG_BACKEND", BackendPostgres)),
			SeedMemory:     getBoolEnv("SEED_MEMORY_CATALOG", true),
		},

		// Database configuration
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "turnstile_db"),
			User:     getEnv("DB_USER", "turnstile_user"),
			Password: getEnv("DB_PASSWORD", "turnstile_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			CacheTTL: getDurationEnv("REDIS_CACHE_TTL", 5*time.Minute),
		},

		Admission: AdmissionConfig{
			TokenTTL:               getDurationEnvSeconds("QUEUE_TOKEN_TTL", 600*time.Second),
			SeatLockTTL:            getDurationEnvSeconds("SEAT_LOCK_TTL", 300*time.Second),
			SchedulerInterval:      getDurationEnv("SCHEDULER_INTERVAL", 10*time.Second),
			BroadcastLimit:         getIntEnv("QUEUE_BROADCAST_LIMIT", 100),
			AvgProcessingSeconds:   getIntEnv("QUEUE_AVG_PROCESSING_SECONDS", 3),
			SchedulerLeaderLock:    getBoolEnv("SCHEDULER_LEADER_LOCK", false),
			SchedulerLeaderLeaseMs: getIntEnv("SCHEDULER_LEADER_LEASE_MS", 30000),
			SSETimeout:             getDurationEnv("SSE_TIMEOUT", 30*time.Minute),
			SSEBuffer:              getIntEnv("SSE_BUFFER", 16),
		},

		Payment: PaymentConfig{
			SuccessRate: getFloatEnv("PAYMENT_SUCCESS_RATE", 0.8),
		},

		Auth: AuthConfig{
			Enabled:               getBoolEnv("AUTH_ENABLED", false),
			JWTSecret:             getEnv("JWT_SECRET", "change-me-turnstile-secret"),
			Issuer:                getEnv("JWT_ISSUER", "turnstile"),
			BootstrapClientID:     getEnv("AUTH_BOOTSTRAP_CLIENT_ID", ""),
			BootstrapClientSecret: getEnv("AUTH_BOOTSTRAP_CLIENT_SECRET", ""),
			BootstrapClientScopes: getEnv("AUTH_BOOTSTRAP_CLIENT_SCOPES", "queue:admin"),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests: getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:  getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 120),
			QueueRequests:   getIntEnv("RATE_LIMIT_QUEUE_REQUESTS", 30),
			SeatRequests:    getIntEnv("RATE_LIMIT_SEAT_REQUESTS", 30),
			PaymentRequests: getIntEnv("RATE_LIMIT_PAYMENT_REQUESTS", 10),
			AuthRequests:    getIntEnv("RATE_LIMIT_AUTH_REQUESTS", 20),
			HealthRequests:  getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:  getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		Kafka: KafkaConfig{
			Enabled:     getBoolEnv("KAFKA_ENABLED", false),
			Brokers:     getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			PushTopic:   getEnv("KAFKA_PUSH_TOPIC", "turnstile.queue-push"),
			DomainTopic: getEnv("KAFKA_DOMAIN_TOPIC", "turnstile.domain-events"),
			GroupPrefix: getEnv("KAFKA_GROUP_PREFIX", "turnstile-push"),
		},

		Metrics: MetricsConfig{
			Enabled: getBoolEnv("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// Validate reports configuration values the service cannot run with
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	switch c.Store.CatalogBackend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unknown CATALOG_BACKEND %q", c.Store.CatalogBackend)
	}
	if c.Admission.TokenTTL <= 0 {
		return fmt.Errorf("QUEUE_TOKEN_TTL must be positive")
	}
	if c.Admission.SeatLockTTL <= 0 {
		return fmt.Errorf("SEAT_LOCK_TTL must be positive")
	}
	if c.Admission.SchedulerInterval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive")
	}
	if c.Admission.BroadcastLimit < 0 {
		return fmt.Errorf("QUEUE_BROADCAST_LIMIT must not be negative")
	}
	if c.Payment.SuccessRate < 0 || c.Payment.SuccessRate > 1 {
		return fmt.Errorf("PAYMENT_SUCCESS_RATE must be within [0, 1]")
	}
	if c.Admission.SchedulerLeaderLock && c.Store.Backend != BackendRedis {
		return fmt.Errorf("SCHEDULER_LEADER_LOCK requires the redis store backend")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	return nil
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "turnstile-" + strconv.Itoa(os.Getpid())
	}
	return host + "-" + strconv.Itoa(os.Getpid())
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getDurationEnvSeconds gets an environment variable as seconds (int) and converts to time.Duration
func getDurationEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// UsesRedis reports whether any component needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.Store.Backend == BackendRedis
}

// UsesPostgres reports whether the catalog lives in PostgreSQL
func (c *Config) UsesPostgres() bool {
	return c.Store.CatalogBackend == BackendPostgres
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	if c.APIVersion == "" {
		return c.APIPrefix
	}
	return c.APIPrefix + "/" + c.APIVersion
}
