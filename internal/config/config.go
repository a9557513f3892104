package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/theeagle2407/Vigil/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Registry RegistryConfig `mapstructure:"registry"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Ethereum EthereumConfig `mapstructure:"ethereum"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig governs the HTTP API listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the audit archive.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// MonitorConfig tunes the security monitor.
type MonitorConfig struct {
	CheckInterval    time.Duration `mapstructure:"check_interval"`
	MaxDailyAmount   float64       `mapstructure:"max_daily_amount"`
	AutoBlockUnknown bool          `mapstructure:"auto_block_unknown"`
	AlertThreshold   float64       `mapstructure:"alert_threshold"`
	AdvisoryLockKey  int64         `mapstructure:"advisory_lock_key"`
}

// RegistryConfig seeds the threat registry.
type RegistryConfig struct {
	Capacity         int      `mapstructure:"capacity"`
	ScamAddresses    []string `mapstructure:"scam_addresses"`
	PhishingPatterns []string `mapstructure:"phishing_patterns"`
}

// ScoringConfig adjusts transaction risk scoring.
type ScoringConfig struct {
	ValueThreshold float64 `mapstructure:"value_threshold"`
}

// EthereumConfig covers on-chain data access.
type EthereumConfig struct {
	RPCURL           string        `mapstructure:"rpc_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	ApprovalLookback uint64        `mapstructure:"approval_lookback"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram alert channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VIGIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vigil")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("monitor.check_interval", "10s")
	v.SetDefault("monitor.max_daily_amount", 1000.0)
	v.SetDefault("monitor.auto_block_unknown", false)
	v.SetDefault("monitor.alert_threshold", 0.7)
	v.SetDefault("monitor.advisory_lock_key", int64(0x76696769))

	v.SetDefault("registry.capacity", 100)
	v.SetDefault("registry.scam_addresses", []string{
		"0x0000000000000000000000000000000000000000",
		"0xdead000000000000000000000000000000000000",
	})
	v.SetDefault("registry.phishing_patterns", []string{
		"metamask-secure",
		"wallet-verify",
		"claim-reward",
		"urgent-action",
	})

	v.SetDefault("scoring.value_threshold", 10000.0)

	v.SetDefault("ethereum.request_timeout", "10s")
	v.SetDefault("ethereum.approval_lookback", uint64(5000))

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port number")
	}
	if c.Monitor.CheckInterval <= 0 {
		return fmt.Errorf("monitor.check_interval must be greater than zero")
	}
	if c.Monitor.AlertThreshold < 0 || c.Monitor.AlertThreshold > 1 {
		return fmt.Errorf("monitor.alert_threshold must be within [0,1]")
	}
	if c.Registry.Capacity <= 0 {
		return fmt.Errorf("registry.capacity must be greater than zero")
	}
	if c.Scoring.ValueThreshold <= 0 {
		return fmt.Errorf("scoring.value_threshold must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
