package domain

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetPredictorConfig() *PredictorConfig
	GetCacheConfig() *CacheConfig
	GetExportConfig() *ExportConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
