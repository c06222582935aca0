package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/httputil"
	"github.com/baynext/baynext/pkg/observability"
	"github.com/baynext/baynext/pkg/storage"
	"github.com/baynext/baynext/pkg/storage/sqlstore"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Auth configuration
	Auth AuthConfig

	// Storage configuration
	Storage storage.Config

	// Observability configuration
	Observability ObservabilityConfig

	// Login throttling
	Throttle ThrottleConfig

	// Background jobs
	Jobs JobsConfig

	// Audit event forwarding
	Audit AuditConfig

	// File the configuration was overlaid from, empty when none
	File string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// Browser origins allowed to call the API, "*" for any
	CORSAllowedOrigins []string

	// Proxies (CIDRs or IPs) whose X-Forwarded-For is believed. Empty
	// means the client address is always the TCP peer.
	TrustedProxies []string
}

// AuthConfig holds token and password settings
type AuthConfig struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// ThrottleConfig limits failed logins per email and client address
type ThrottleConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

// JobsConfig holds cron schedules for maintenance jobs
type JobsConfig struct {
	KeyExpirySweep string
}

// AuditConfig configures the audit webhook sink. Events are only written
// to the log when WebhookURL is empty.
type AuditConfig struct {
	WebhookURL         string
	WebhookSecret      string
	WebhookMaxAttempts int
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Auth: AuthConfig{
			TokenTTL:   auth.DefaultTokenTTL,
			BcryptCost: auth.DefaultBcryptCost,
		},
		Storage: storage.DefaultConfig(),
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			LogFormat:          "json",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "baynext-api",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1.0,
		},
		Throttle: ThrottleConfig{
			Enabled:     true,
			MaxAttempts: 10,
			Window:      15 * time.Minute,
		},
		Jobs: JobsConfig{
			KeyExpirySweep: "@every 5m",
		},
		Audit: AuditConfig{
			WebhookMaxAttempts: 5,
		},
	}
}

// LoadConfig builds the configuration from defaults, the YAML file named by
// BAYNEXT_CONFIG_FILE if any, and then environment variables.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := getEnv("BAYNEXT_CONFIG_FILE", ""); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server = loadServerConfig(c.Server)
	c.Auth = loadAuthConfig(c.Auth)
	c.Storage = loadStorageConfig(c.Storage)
	c.Observability = loadObservabilityConfig(c.Observability)
	c.Throttle = loadThrottleConfig(c.Throttle)
	c.Jobs.KeyExpirySweep = getEnv("BAYNEXT_KEY_EXPIRY_SWEEP", c.Jobs.KeyExpirySweep)
	c.Audit.WebhookURL = getEnv("BAYNEXT_AUDIT_WEBHOOK_URL", c.Audit.WebhookURL)
	c.Audit.WebhookSecret = getEnv("BAYNEXT_AUDIT_WEBHOOK_SECRET", c.Audit.WebhookSecret)
	c.Audit.WebhookMaxAttempts = getEnvInt("BAYNEXT_AUDIT_WEBHOOK_MAX_ATTEMPTS", c.Audit.WebhookMaxAttempts)
}

// loadServerConfig loads server configuration from environment
func loadServerConfig(cfg ServerConfig) ServerConfig {
	return ServerConfig{
		Host:            getEnv("BAYNEXT_HOST", cfg.Host),
		Port:            getEnv("BAYNEXT_PORT", cfg.Port),
		ReadTimeout:     getEnvDuration("BAYNEXT_READ_TIMEOUT", cfg.ReadTimeout),
		WriteTimeout:    getEnvDuration("BAYNEXT_WRITE_TIMEOUT", cfg.WriteTimeout),
		IdleTimeout:     getEnvDuration("BAYNEXT_IDLE_TIMEOUT", cfg.IdleTimeout),
		ShutdownTimeout: getEnvDuration("BAYNEXT_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout),
		HealthPort:      getEnv("BAYNEXT_HEALTH_PORT", cfg.HealthPort),

		CORSAllowedOrigins: getEnvList("BAYNEXT_CORS_ORIGINS", cfg.CORSAllowedOrigins),
		TrustedProxies:     getEnvList("BAYNEXT_TRUSTED_PROXIES", cfg.TrustedProxies),
	}
}

// loadAuthConfig loads auth configuration from environment.
// AUTH_SECRET is accepted for compatibility with existing deployments.
func loadAuthConfig(cfg AuthConfig) AuthConfig {
	cfg.Secret = getEnv("AUTH_SECRET", cfg.Secret)
	cfg.Secret = getEnv("BAYNEXT_AUTH_SECRET", cfg.Secret)
	cfg.TokenTTL = getEnvDuration("BAYNEXT_TOKEN_TTL", cfg.TokenTTL)
	cfg.BcryptCost = getEnvInt("BAYNEXT_BCRYPT_COST", cfg.BcryptCost)
	return cfg
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig(cfg storage.Config) storage.Config {
	cfg.Type = getEnv("BAYNEXT_STORAGE_TYPE", cfg.Type)

	// SQL config
	cfg.DatabaseURL = getEnv("BAYNEXT_DATABASE_URL", cfg.DatabaseURL)
	if replicaURLs := getEnv("BAYNEXT_DATABASE_REPLICA_URLS", ""); replicaURLs != "" {
		cfg.ReplicaURLs = sqlstore.ParseReplicaURLs(replicaURLs)
	}
	if maxConns := getEnvInt("BAYNEXT_DATABASE_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("BAYNEXT_DATABASE_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("BAYNEXT_DATABASE_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}
	cfg.AutoMigrate = getEnvBool("BAYNEXT_AUTO_MIGRATE", cfg.AutoMigrate)

	// Redis config
	cfg.RedisURL = getEnv("BAYNEXT_REDIS_URL", cfg.RedisURL)
	cfg.RedisPassword = getEnv("BAYNEXT_REDIS_PASSWORD", cfg.RedisPassword)
	if redisDB := getEnvInt("BAYNEXT_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("BAYNEXT_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("BAYNEXT_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	// last_used_at debouncing
	cfg.TouchInterval = getEnvDuration("BAYNEXT_KEY_TOUCH_INTERVAL", cfg.TouchInterval)

	return cfg
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig(cfg ObservabilityConfig) ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           getEnv("BAYNEXT_LOG_LEVEL", cfg.LogLevel),
		LogFormat:          getEnv("BAYNEXT_LOG_FORMAT", cfg.LogFormat),
		MetricsEnabled:     getEnvBool("BAYNEXT_METRICS_ENABLED", cfg.MetricsEnabled),
		OTelEnabled:        getEnvBool("BAYNEXT_OTEL_ENABLED", cfg.OTelEnabled),
		OTelEndpoint:       getEnv("BAYNEXT_OTEL_ENDPOINT", cfg.OTelEndpoint),
		OTelServiceName:    getEnv("BAYNEXT_OTEL_SERVICE_NAME", cfg.OTelServiceName),
		OTelServiceVersion: getEnv("BAYNEXT_OTEL_SERVICE_VERSION", cfg.OTelServiceVersion),
		OTelInsecure:       getEnvBool("BAYNEXT_OTEL_INSECURE", cfg.OTelInsecure),
		OTelSampleRatio:    getEnvFloat("BAYNEXT_OTEL_SAMPLE_RATIO", cfg.OTelSampleRatio),
	}
}

// loadThrottleConfig loads login throttle configuration from environment
func loadThrottleConfig(cfg ThrottleConfig) ThrottleConfig {
	return ThrottleConfig{
		Enabled:     getEnvBool("BAYNEXT_LOGIN_THROTTLE_ENABLED", cfg.Enabled),
		MaxAttempts: getEnvInt("BAYNEXT_LOGIN_THROTTLE_MAX_ATTEMPTS", cfg.MaxAttempts),
		Window:      getEnvDuration("BAYNEXT_LOGIN_THROTTLE_WINDOW", cfg.Window),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("AUTH_SECRET is not set: %w", auth.ErrMissingAuthSecret)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if _, err := httputil.ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		return err
	}

	// Validate storage config based on type
	switch c.Storage.Type {
	case "memory":
	case "postgres", "sqlite3":
		if c.Storage.Type == "postgres" && c.Storage.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, postgres, or sqlite3)", c.Storage.Type)
	}

	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts <= 0 {
			return fmt.Errorf("login throttle max attempts must be positive")
		}
		if c.Throttle.Window <= 0 {
			return fmt.Errorf("login throttle window must be positive")
		}
	}

	if c.Audit.WebhookURL != "" {
		u, err := url.Parse(c.Audit.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("audit webhook URL must be an absolute http(s) URL")
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	return nil
}

// AuthenticatorConfig returns the settings auth.NewAuthenticator needs
func (c *Config) AuthenticatorConfig() auth.Config {
	return auth.Config{
		Secret:     []byte(c.Auth.Secret),
		TokenTTL:   c.Auth.TokenTTL,
		BcryptCost: c.Auth.BcryptCost,
	}
}

// ClientIPResolver returns the trusted proxy set for httputil.ClientIPMiddleware
func (c *Config) ClientIPResolver() (*httputil.TrustedProxies, error) {
	return httputil.ParseTrustedProxies(c.Server.TrustedProxies)
}

// OTelConfig returns the OpenTelemetry settings
func (c *Config) OTelConfig() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
		SampleRatio:    c.Observability.OTelSampleRatio,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
