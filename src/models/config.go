package models

import "time"

// MConfig Structure
type MConfig struct {
	Name           string         `yaml:"name"`
	Host           string         `yaml:"host"`
	Port           int            `yaml:"port"`
	LogLevel       string         `yaml:"log_level"`
	TracingEnabled bool           `yaml:"tracing_enabled"`
	GrpcHost       string         `yaml:"grpc_host"`
	GrpcPort       int            `yaml:"grpc_port"`
	Storage        MStorageConfig `yaml:"storage"`
	Network        MNetworkConfig `yaml:"network"`
	Ticker         MTickerConfig  `yaml:"ticker"`
	KnownAssets    []string       `yaml:"known_assets"`
	Watchlist      []string       `yaml:"watchlist"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // memory, sqlite or postgres
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Proxies        []string `yaml:"proxies"`
	RequestTimeout int      `yaml:"timeout"`
	MaxRetries     int      `yaml:"retries"`
	RetryDelayMs   int      `yaml:"retry_delay_ms"`
	UserAgent      string   `yaml:"user_agent"`
}

type MTickerConfig struct {
	APIBase           string `yaml:"api_base"`
	RefreshIntervalMs int    `yaml:"refresh_interval_ms"`
	CacheTTLSeconds   int    `yaml:"cache_ttl_seconds"` // 0 keeps entries until bypassed
}

// -----------------------------------------------------------------------------

// GetLogLevel lets the logger read the level without importing config.
func (c *MConfig) GetLogLevel() string {
	if c == nil {
		return ""
	}
	return c.LogLevel
}

func (c *MConfig) RefreshInterval() time.Duration {
	return time.Duration(c.Ticker.RefreshIntervalMs) * time.Millisecond
}

func (c *MConfig) CacheTTL() time.Duration {
	return time.Duration(c.Ticker.CacheTTLSeconds) * time.Second
}

func (c *MConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Network.RequestTimeout) * time.Second
}

func (c *MConfig) RetryDelay() time.Duration {
	return time.Duration(c.Network.RetryDelayMs) * time.Millisecond
}
