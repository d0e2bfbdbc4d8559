// Package config loads the engine's run configuration from a YAML file
// (with environment-variable overrides), the way the teacher's own
// config package wires viper.
package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/backsim/internal/simbroker"
	"github.com/abdoElHodaky/backsim/pkg/simtype"
)

// BrokerConfig is the YAML-facing mirror of simbroker.Config, keyed by
// exchange under Config.Brokers.
type BrokerConfig struct {
	WireLatency     uint64 `mapstructure:"wire_latency"`
	InternalLatency uint64 `mapstructure:"internal_latency"`
	StrictExecution bool   `mapstructure:"strict_execution"`
}

// ToSimBrokerConfig converts the YAML representation to the type
// internal/simbroker and internal/engine consume.
func (b BrokerConfig) ToSimBrokerConfig() simbroker.Config {
	return simbroker.Config{
		WireLatency:     simtype.Timestamp(b.WireLatency),
		InternalLatency: simtype.Timestamp(b.InternalLatency),
		StrictExecution: b.StrictExecution,
	}
}

// MessagingConfig selects and configures the sideband message bus
// backend. Backend is one of "" (disabled), "memory" or "nats".
type MessagingConfig struct {
	Backend         string `mapstructure:"backend"`
	BufferSize      int    `mapstructure:"buffer_size"`
	NATSURL         string `mapstructure:"nats_url"`
	NATSSubject     string `mapstructure:"nats_subject"`
}

// Config is the top-level run configuration.
type Config struct {
	// Exchanges lists every exchange the run should construct a
	// simulated broker for.
	Exchanges []string `mapstructure:"exchanges"`

	// Brokers holds a per-exchange override; an exchange with no entry
	// uses simbroker.DefaultConfig.
	Brokers map[string]BrokerConfig `mapstructure:"brokers"`

	// DefaultLatency is the wire latency assumed for market data whose
	// exchange has no registered broker.
	DefaultLatency uint64 `mapstructure:"default_latency"`

	// MarketDataFile is the path to the JSON market-data fixture fed to
	// the simulated environment.
	MarketDataFile string `mapstructure:"market_data_file"`

	Messaging MessagingConfig `mapstructure:"messaging"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Address string `mapstructure:"address"`
	} `mapstructure:"metrics"`

	LogLevel string `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_latency", 0)
	v.SetDefault("messaging.backend", "")
	v.SetDefault("messaging.buffer_size", 256)
	v.SetDefault("messaging.nats_subject", "backsim.messages")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9090")
	v.SetDefault("log_level", "info")
}

// Load reads configPath (a directory containing config.yaml, or ""
// for the current directory / ./config / /etc/backsim) plus any
// BACKSIM_-prefixed environment variable overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/backsim")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("BACKSIM")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// NewLogger builds a zap.Logger matching cfg.LogLevel.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	switch cfg.LogLevel {
	case "debug":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
