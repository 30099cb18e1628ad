package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Predictor   PredictorConfig `mapstructure:"predictor"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Session     SessionConfig   `mapstructure:"session"`
	Export      ExportConfig    `mapstructure:"export"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// PredictorConfig represents the prediction service client configuration
type PredictorConfig struct {
	BaseURL        string               `mapstructure:"base_url"`
	ModelID        string               `mapstructure:"model_id"` // Optional default model_id
	Timeout        time.Duration        `mapstructure:"timeout"`
	RateLimit      float64              `mapstructure:"rate_limit"` // Requests per second
	Burst          int                  `mapstructure:"burst"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig represents circuit breaker settings
type CircuitBreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// CacheConfig represents model metadata cache configuration
type CacheConfig struct {
	MemorySize int           `mapstructure:"memory_size"`
	TTL        time.Duration `mapstructure:"ttl"`
	RedisURL   string        `mapstructure:"redis_url"` // Optional second tier
	PoolSize   int           `mapstructure:"pool_size"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// SessionConfig bounds the in-memory session store
type SessionConfig struct {
	MaxSessions int `mapstructure:"max_sessions"`
}

// ExportConfig selects where generated reports are stored
type ExportConfig struct {
	Driver string   `mapstructure:"driver"` // "file" or "s3"
	Dir    string   `mapstructure:"dir"`
	S3     S3Config `mapstructure:"s3"`
}

// S3Config represents an S3-compatible object store
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
