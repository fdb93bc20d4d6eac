package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Data      DataConfig      `yaml:"data"`
	PriceFeed PriceFeedConfig `yaml:"priceFeed"`
	RpcClient RpcClientConfig `yaml:"rpcClient"`
	Cache     CacheConfig     `yaml:"cache"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
}

// DataConfig points at the wallet and chain-asset metadata files.
type DataConfig struct {
	WalletsFile     string `yaml:"walletsFile"`
	ChainAssetsFile string `yaml:"chainAssetsFile"`
}

// PriceFeedConfig holds the configuration for the quote API and poller.
type PriceFeedConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	PollIntervalSeconds  int    `yaml:"pollIntervalSeconds"`
	MaxIDsPerBatchCall   int    `yaml:"maxIdsPerBatchCall"`
}

// RpcClientConfig holds configuration for chain RPC clients.
type RpcClientConfig struct {
	ConnectTimeoutMs    int64 `yaml:"connectTimeoutMs"`
	CallTimeoutMs       int64 `yaml:"callTimeoutMs"`
	PollIntervalSeconds int   `yaml:"pollIntervalSeconds"`
	RateLimit           int   `yaml:"rateLimit"`
	BurstLimit          int   `yaml:"burstLimit"`
}

// CacheConfig holds configuration for the chain metadata cache.
type CacheConfig struct {
	DefaultExpirationMinutes int `yaml:"defaultExpirationMinutes"`
	CleanupIntervalMinutes   int `yaml:"cleanupIntervalMinutes"`
}

// LoadConfig loads configuration from a YAML file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.PriceFeed.RequestTimeoutMillis == 0 {
		cfg.PriceFeed.RequestTimeoutMillis = 10000
		logrus.Infof("PriceFeed.RequestTimeoutMillis not set, defaulting to %d ms", cfg.PriceFeed.RequestTimeoutMillis)
	}
	if cfg.PriceFeed.PollIntervalSeconds == 0 {
		cfg.PriceFeed.PollIntervalSeconds = 60
		logrus.Infof("PriceFeed.PollIntervalSeconds not set, defaulting to %d s", cfg.PriceFeed.PollIntervalSeconds)
	}
	if cfg.PriceFeed.MaxIDsPerBatchCall == 0 {
		cfg.PriceFeed.MaxIDsPerBatchCall = 30
	}
	if cfg.RpcClient.ConnectTimeoutMs == 0 {
		cfg.RpcClient.ConnectTimeoutMs = 10000
	}
	if cfg.RpcClient.CallTimeoutMs == 0 {
		cfg.RpcClient.CallTimeoutMs = 15000
	}
	if cfg.RpcClient.PollIntervalSeconds == 0 {
		cfg.RpcClient.PollIntervalSeconds = 30
	}
	if cfg.Cache.DefaultExpirationMinutes == 0 {
		cfg.Cache.DefaultExpirationMinutes = 60
	}
	if cfg.Cache.CleanupIntervalMinutes == 0 {
		cfg.Cache.CleanupIntervalMinutes = 10
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}
