package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"crypto-tracker/src/helpers"
	"crypto-tracker/src/models"

	"gopkg.in/yaml.v3"
)

const (
	EnvAPIBase      = "TRACKER_API_BASE"
	EnvLogLevel     = "TRACKER_LOG_LEVEL"
	EnvDBConnection = "TRACKER_DB_CONNECTION"
)

// DefaultKnownAssets is the symbol list offered to dashboards for selection.
var DefaultKnownAssets = []string{
	"BTC", "ETH", "LTC", "XRP", "BCH", "USDC", "ADA",
	"SOL", "DOGE", "LINK", "DOT", "MATIC", "UNI", "AVAX",
}

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// Default returns a configuration that validates without a file.
func Default() *Config {
	return &Config{MConfig: &models.MConfig{
		Name:     "crypto-tracker",
		Host:     "0.0.0.0",
		Port:     8080,
		LogLevel: "info",
		GrpcHost: "0.0.0.0",
		GrpcPort: 50051,
		Storage: models.MStorageConfig{
			DBType: "memory",
			DBPath: "data/watchlist.db",
		},
		Network: models.MNetworkConfig{
			RequestTimeout: 10,
			MaxRetries:     3,
			UserAgent:      "crypto-tracker/1.0",
		},
		Ticker: models.MTickerConfig{
			APIBase:           "https://www.mercadobitcoin.net/api",
			RefreshIntervalMs: 30000,
		},
		KnownAssets: append([]string(nil), DefaultKnownAssets...),
	}}
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file layered over Default()
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
	}

	// 2. Unmarshal onto the defaults so omitted keys keep their value
	config := Default()
	if err := yaml.Unmarshal(data, config.MConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}

	// 3. Environment wins over the file
	config.ApplyEnv()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides selected keys from TRACKER_* variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIBase)); v != "" {
		c.Ticker.APIBase = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBConnection)); v != "" {
		c.Storage.DBConnectionString = v
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort <= 1024 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}
	if c.GrpcPort == c.Port {
		return fmt.Errorf("grpc port cannot equal server port (%d)", c.Port)
	}

	// Storage
	switch c.Storage.DBType {
	case "memory":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unknown database type '%s' (memory, sqlite or postgres)", c.Storage.DBType)
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.RetryDelayMs < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	// Ticker
	u, err := url.Parse(c.Ticker.APIBase)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api base must be an http(s) URL, got '%s'", c.Ticker.APIBase)
	}
	if c.Ticker.RefreshIntervalMs <= 0 {
		return fmt.Errorf("refresh interval must be greater than 0")
	}
	if c.Ticker.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}

	for i, symbol := range c.KnownAssets {
		if strings.TrimSpace(symbol) == "" {
			return fmt.Errorf("known asset %d cannot be empty", i)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
