// Package config loads the application configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the root of the application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Agent    AgentConfig    `mapstructure:"agent"`
}

type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	// AssetsFile points at the YAML registry of tracked assets, seeded into
	// the database on startup.
	AssetsFile string `mapstructure:"assets_file"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	// AuditPath holds the append-only execution audit database.
	AuditPath string `mapstructure:"audit_path"`
}

type ExchangeConfig struct {
	Testnet bool `mapstructure:"testnet"`
	// MasterKey is the base64 AES-256 key that unseals stored account
	// credentials. Usually supplied via TRADER_EXCHANGE_MASTER_KEY.
	MasterKey   string        `mapstructure:"master_key"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

type OracleConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AgentConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CycleInterval     string `mapstructure:"cycle_interval"`
	SweepInterval     string `mapstructure:"sweep_interval"`
	PriceInterval     string `mapstructure:"price_interval"`
	IndicatorInterval string `mapstructure:"indicator_interval"`
	// RequestsPerSecond paces exchange calls across all accounts.
	RequestsPerSecond int `mapstructure:"requests_per_second"`
}

// Load reads the YAML file at path, applies TRADER_* environment overrides
// (dots become underscores, e.g. TRADER_DATABASE_PATH), fills defaults and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "trader.db"
	}
	if c.Database.AuditPath == "" {
		c.Database.AuditPath = "trader_audit.db"
	}
	if c.Exchange.HTTPTimeout <= 0 {
		c.Exchange.HTTPTimeout = 15 * time.Second
	}
	if c.Oracle.Model == "" {
		c.Oracle.Model = "gemini-2.0-flash"
	}
	if c.Oracle.Timeout <= 0 {
		c.Oracle.Timeout = 30 * time.Second
	}
	if c.Agent.CycleInterval == "" {
		c.Agent.CycleInterval = "4h"
	}
	if c.Agent.SweepInterval == "" {
		c.Agent.SweepInterval = "15m"
	}
	if c.Agent.PriceInterval == "" {
		c.Agent.PriceInterval = "5m"
	}
	if c.Agent.IndicatorInterval == "" {
		c.Agent.IndicatorInterval = "1h"
	}
	if c.Agent.RequestsPerSecond <= 0 {
		c.Agent.RequestsPerSecond = 5
	}
}

func (c *Config) validate() error {
	for name, iv := range map[string]string{
		"agent.cycle_interval":     c.Agent.CycleInterval,
		"agent.sweep_interval":     c.Agent.SweepInterval,
		"agent.price_interval":     c.Agent.PriceInterval,
		"agent.indicator_interval": c.Agent.IndicatorInterval,
	} {
		if _, ok := parseInterval(iv); !ok {
			return fmt.Errorf("invalid %s: %q", name, iv)
		}
	}
	return nil
}
