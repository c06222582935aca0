package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML layout. Unset keys leave the current value alone.
type fileConfig struct {
	Server struct {
		Host            *string `yaml:"host"`
		Port            *string `yaml:"port"`
		HealthPort      *string `yaml:"health_port"`
		ReadTimeout     *string `yaml:"read_timeout"`
		WriteTimeout    *string `yaml:"write_timeout"`
		IdleTimeout     *string `yaml:"idle_timeout"`
		ShutdownTimeout *string `yaml:"shutdown_timeout"`

		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		TrustedProxies     []string `yaml:"trusted_proxies"`
	} `yaml:"server"`

	Auth struct {
		Secret     *string `yaml:"secret"`
		TokenTTL   *string `yaml:"token_ttl"`
		BcryptCost *int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`

	Storage struct {
		Type          *string  `yaml:"type"`
		DatabaseURL   *string  `yaml:"database_url"`
		ReplicaURLs   []string `yaml:"replica_urls"`
		MaxConns      *int     `yaml:"max_conns"`
		MinConns      *int     `yaml:"min_conns"`
		Timeout       *string  `yaml:"timeout"`
		AutoMigrate   *bool    `yaml:"auto_migrate"`
		RedisURL      *string  `yaml:"redis_url"`
		RedisPassword *string  `yaml:"redis_password"`
		RedisDB       *int     `yaml:"redis_db"`
		TouchInterval *string  `yaml:"key_touch_interval"`
	} `yaml:"storage"`

	Logging struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"logging"`

	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`

	OTel struct {
		Enabled        *bool    `yaml:"enabled"`
		Endpoint       *string  `yaml:"endpoint"`
		ServiceName    *string  `yaml:"service_name"`
		ServiceVersion *string  `yaml:"service_version"`
		Insecure       *bool    `yaml:"insecure"`
		SampleRatio    *float64 `yaml:"sample_ratio"`
	} `yaml:"otel"`

	Throttle struct {
		Enabled     *bool   `yaml:"enabled"`
		MaxAttempts *int    `yaml:"max_attempts"`
		Window      *string `yaml:"window"`
	} `yaml:"login_throttle"`

	Jobs struct {
		KeyExpirySweep *string `yaml:"key_expiry_sweep"`
	} `yaml:"jobs"`

	Audit struct {
		WebhookURL         *string `yaml:"webhook_url"`
		WebhookSecret      *string `yaml:"webhook_secret"`
		WebhookMaxAttempts *int    `yaml:"webhook_max_attempts"`
	} `yaml:"audit"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or nothing when unset
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &fc); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &fc, nil
}

// ApplyFile overlays the YAML file at path onto c
func (c *Config) ApplyFile(path string) error {
	fc, err := readFile(path)
	if err != nil {
		return err
	}
	if err := c.apply(fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	c.File = path
	return nil
}

func (c *Config) apply(fc *fileConfig) error {
	setString(&c.Server.Host, fc.Server.Host)
	setString(&c.Server.Port, fc.Server.Port)
	setString(&c.Server.HealthPort, fc.Server.HealthPort)
	if len(fc.Server.CORSAllowedOrigins) > 0 {
		c.Server.CORSAllowedOrigins = fc.Server.CORSAllowedOrigins
	}
	if len(fc.Server.TrustedProxies) > 0 {
		c.Server.TrustedProxies = fc.Server.TrustedProxies
	}

	setString(&c.Auth.Secret, fc.Auth.Secret)
	setInt(&c.Auth.BcryptCost, fc.Auth.BcryptCost)

	setString(&c.Storage.Type, fc.Storage.Type)
	setString(&c.Storage.DatabaseURL, fc.Storage.DatabaseURL)
	if len(fc.Storage.ReplicaURLs) > 0 {
		c.Storage.ReplicaURLs = fc.Storage.ReplicaURLs
	}
	setInt(&c.Storage.MaxConns, fc.Storage.MaxConns)
	setInt(&c.Storage.MinConns, fc.Storage.MinConns)
	setBool(&c.Storage.AutoMigrate, fc.Storage.AutoMigrate)
	setString(&c.Storage.RedisURL, fc.Storage.RedisURL)
	setString(&c.Storage.RedisPassword, fc.Storage.RedisPassword)
	setInt(&c.Storage.RedisDB, fc.Storage.RedisDB)

	setString(&c.Observability.LogLevel, fc.Logging.Level)
	setString(&c.Observability.LogFormat, fc.Logging.Format)
	setBool(&c.Observability.MetricsEnabled, fc.Metrics.Enabled)
	setBool(&c.Observability.OTelEnabled, fc.OTel.Enabled)
	setString(&c.Observability.OTelEndpoint, fc.OTel.Endpoint)
	setString(&c.Observability.OTelServiceName, fc.OTel.ServiceName)
	setString(&c.Observability.OTelServiceVersion, fc.OTel.ServiceVersion)
	setBool(&c.Observability.OTelInsecure, fc.OTel.Insecure)
	if fc.OTel.SampleRatio != nil {
		c.Observability.OTelSampleRatio = *fc.OTel.SampleRatio
	}

	setBool(&c.Throttle.Enabled, fc.Throttle.Enabled)
	setInt(&c.Throttle.MaxAttempts, fc.Throttle.MaxAttempts)

	setString(&c.Jobs.KeyExpirySweep, fc.Jobs.KeyExpirySweep)

	setString(&c.Audit.WebhookURL, fc.Audit.WebhookURL)
	setString(&c.Audit.WebhookSecret, fc.Audit.WebhookSecret)
	setInt(&c.Audit.WebhookMaxAttempts, fc.Audit.WebhookMaxAttempts)

	durations := []struct {
		name string
		raw  *string
		dst  *time.Duration
	}{
		{"server.read_timeout", fc.Server.ReadTimeout, &c.Server.ReadTimeout},
		{"server.write_timeout", fc.Server.WriteTimeout, &c.Server.WriteTimeout},
		{"server.idle_timeout", fc.Server.IdleTimeout, &c.Server.IdleTimeout},
		{"server.shutdown_timeout", fc.Server.ShutdownTimeout, &c.Server.ShutdownTimeout},
		{"auth.token_ttl", fc.Auth.TokenTTL, &c.Auth.TokenTTL},
		{"storage.timeout", fc.Storage.Timeout, &c.Storage.Timeout},
		{"storage.key_touch_interval", fc.Storage.TouchInterval, &c.Storage.TouchInterval},
		{"login_throttle.window", fc.Throttle.Window, &c.Throttle.Window},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", d.name, *d.raw, err)
		}
		*d.dst = parsed
	}

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
