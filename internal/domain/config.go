package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string        `mapstructure:"environment"`
	Data        DataConfig    `mapstructure:"data"`
	Batch       BatchConfig   `mapstructure:"batch"`
	Chart       ChartConfig   `mapstructure:"chart"`
	Storage     StorageConfig `mapstructure:"storage"`
	Server      ServerConfig  `mapstructure:"server"`
	Cache       CacheConfig   `mapstructure:"cache"`
	Logging     LoggingConfig `mapstructure:"logging"`
	MCP         MCPConfig     `mapstructure:"mcp"`
}

// DataConfig locates the pending/done/results directory tree
type DataConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// BatchConfig controls record analysis
type BatchConfig struct {
	Workers int  `mapstructure:"workers"`
	Append  bool `mapstructure:"append"`
}

// ChartConfig controls pie chart rendering
type ChartConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Width       int  `mapstructure:"width"`
	Height      int  `mapstructure:"height"`
	Concurrency int  `mapstructure:"concurrency"`
}

// StorageConfig selects the result stores. The JSON result log is always
// written; Backend adds a secondary history store.
type StorageConfig struct {
	Backend     string        `mapstructure:"backend"` // "json", "sqlite", "postgres"
	SQLitePath  string        `mapstructure:"sqlite_path"`
	DatabaseURL string        `mapstructure:"database_url"`
	Migrations  string        `mapstructure:"migrations"`
	Breaker     BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker around remote stores
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"` // requests per second per client
	RateBurst    int           `mapstructure:"rate_burst"`
}

// CacheConfig configures the in-memory distribution cache
type CacheConfig struct {
	MaxItems int `mapstructure:"max_items"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
