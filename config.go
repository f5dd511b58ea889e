package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/elissoncardoso1/All-Press/config"
)

// AllPressConfig is the full application configuration, loaded from TOML
// with environment variable overrides.
type AllPressConfig struct {
	Queue     QueueConfig     `toml:"queue"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Network   NetworkConfig   `toml:"network"`
	Spooler   SpoolerConfig   `toml:"spooler"`
	SNMP      SNMPConfig      `toml:"snmp"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
	Web       WebConfig       `toml:"web"`
}

// QueueConfig holds job queue settings
type QueueConfig struct {
	MaxWorkers int `toml:"max_workers"`
	MaxDepth   int `toml:"max_depth"` // 0 = unbounded
}

// DiscoveryConfig holds device discovery settings
type DiscoveryConfig struct {
	Subnet      string `toml:"subnet"`
	TimeoutMs   int    `toml:"timeout_ms"`
	IntervalSec int    `toml:"interval_seconds"`
	MDNSEnabled bool   `toml:"mdns_enabled"`
}

// NetworkConfig holds reachability probing settings
type NetworkConfig struct {
	DialTimeoutMs int `toml:"dial_timeout_ms"`
}

// SpoolerConfig holds the IPP spooler endpoint settings
type SpoolerConfig struct {
	Endpoint         string `toml:"endpoint"`
	RequestTimeoutMs int    `toml:"request_timeout_ms"`
}

// SNMPConfig holds SNMP identity query settings
type SNMPConfig struct {
	Community string `toml:"community"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `toml:"level"`
}

// WebConfig holds web UI settings
type WebConfig struct {
	HTTPPort int `toml:"http_port"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *AllPressConfig {
	return &AllPressConfig{
		Queue: QueueConfig{
			MaxWorkers: 4,
			MaxDepth:   0,
		},
		Discovery: DiscoveryConfig{
			Subnet:      "192.168.1",
			TimeoutMs:   5000,
			IntervalSec: 5,
			MDNSEnabled: true,
		},
		Network: NetworkConfig{
			DialTimeoutMs: 2000,
		},
		Spooler: SpoolerConfig{
			Endpoint:         "http://localhost:631",
			RequestTimeoutMs: 60000,
		},
		SNMP: SNMPConfig{
			Community: "public",
			TimeoutMs: 2000,
		},
		Database: DatabaseConfig{
			Path: "", // platform default under the data directory
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Web: WebConfig{
			HTTPPort: 8080,
		},
	}
}

// LoadConfig loads configuration from the given TOML file, falling back
// to defaults when the path is empty or missing, then applies
// environment overrides.
func LoadConfig(configPath string) (*AllPressConfig, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		if found, _, err := config.FindConfigFile("allpress.toml"); err == nil {
			configPath = found
		}
	}
	if configPath != "" {
		if err := config.LoadTOML(configPath, cfg); err != nil {
			return nil, err
		}
	}

	if val := os.Getenv("QUEUE_MAX_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Queue.MaxWorkers = n
		}
	}
	if val := os.Getenv("DISCOVERY_SUBNET"); val != "" {
		cfg.Discovery.Subnet = val
	}
	if val := os.Getenv("DISCOVERY_TIMEOUT_MS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Discovery.TimeoutMs = n
		}
	}
	if val := os.Getenv("NETWORK_DIAL_TIMEOUT_MS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Network.DialTimeoutMs = n
		}
	}
	if val := os.Getenv("SPOOLER_ENDPOINT"); val != "" {
		cfg.Spooler.Endpoint = val
	}
	if val := os.Getenv("SNMP_COMMUNITY"); val != "" {
		cfg.SNMP.Community = val
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		cfg.Database.Path = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = strings.ToUpper(val)
	}
	if val := os.Getenv("WEB_HTTP_PORT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Web.HTTPPort = n
		}
	}

	return cfg, nil
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(configPath string) error {
	return config.WriteDefaultTOML(configPath, DefaultConfig())
}
