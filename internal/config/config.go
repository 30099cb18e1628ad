package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/genereveal-server/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g.
// GENEREVEAL_PREDICTOR_BASE_URL
const EnvPrefix = "GENEREVEAL"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager. A .env file in the working
// directory is loaded first when present.
func NewManager() (*Manager, error) {
	return NewManagerWithFile("")
}

// NewManagerWithFile reads an explicit config file instead of searching the
// default locations
func NewManagerWithFile(path string) (*Manager, error) {
	_ = godotenv.Load()

	m := &Manager{configFile: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from file, environment and defaults
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/genereveal/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The config file is optional; defaults and environment still apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "45s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	// Prediction service defaults
	v.SetDefault("predictor.base_url", "http://localhost:8000")
	v.SetDefault("predictor.model_id", "")
	v.SetDefault("predictor.timeout", "30s")
	v.SetDefault("predictor.rate_limit", 10)
	v.SetDefault("predictor.burst", 5)
	v.SetDefault("predictor.circuit_breaker.max_requests", 3)
	v.SetDefault("predictor.circuit_breaker.interval", "30s")
	v.SetDefault("predictor.circuit_breaker.timeout", "60s")
	v.SetDefault("predictor.circuit_breaker.min_requests", 3)
	v.SetDefault("predictor.circuit_breaker.failure_ratio", 0.6)

	// Cache defaults
	v.SetDefault("cache.memory_size", 64)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.max_retries", 3)

	// Session defaults
	v.SetDefault("session.max_sessions", 1000)

	// Export defaults
	v.SetDefault("export.driver", "file")
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.s3.endpoint", "")
	v.SetDefault("export.s3.region", "us-east-1")
	v.SetDefault("export.s3.access_key", "")
	v.SetDefault("export.s3.secret_key", "")
	v.SetDefault("export.s3.bucket", "genereveal-reports")
	v.SetDefault("export.s3.use_ssl", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetPredictorConfig returns prediction service configuration
func (m *Manager) GetPredictorConfig() *domain.PredictorConfig {
	return &m.config.Predictor
}

// GetCacheConfig returns cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// GetExportConfig returns export configuration
func (m *Manager) GetExportConfig() *domain.ExportConfig {
	return &m.config.Export
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	u, err := url.Parse(config.Predictor.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid prediction service URL: %q", config.Predictor.BaseURL)
	}
	if config.Predictor.RateLimit < 0 {
		return fmt.Errorf("invalid prediction rate limit: %v", config.Predictor.RateLimit)
	}
	if r := config.Predictor.CircuitBreaker.FailureRatio; r < 0 || r > 1 {
		return fmt.Errorf("invalid circuit breaker failure ratio: %v", r)
	}

	switch strings.ToLower(config.Export.Driver) {
	case "file", "":
	case "s3":
		if config.Export.S3.Endpoint == "" || config.Export.S3.Bucket == "" {
			return fmt.Errorf("s3 export requires endpoint and bucket")
		}
	default:
		return fmt.Errorf("invalid export driver: %s", config.Export.Driver)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
