// Package config loads service configuration from a YAML file and
// environment variables, env taking precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"` // "text" or "json"
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ClickHouseConfig holds the snapshot archive configuration
type ClickHouseConfig struct {
	DSN      string `mapstructure:"dsn"`
	Database string `mapstructure:"database"`
	Enabled  bool   `mapstructure:"enabled"`
}

// ProviderConfig holds chain-data provider configuration
type ProviderConfig struct {
	// Name selects the adapter: "helius" or "tatum".
	Name string `mapstructure:"name"`

	// Token is the tracked token mint (Solana) or contract (EVM).
	Token string `mapstructure:"token"`

	RPCURL string `mapstructure:"rpc_url"`
	WSURL  string `mapstructure:"ws_url"`
	APIKey string `mapstructure:"api_key"`

	// Chain is the Tatum chain identifier, e.g. "ethereum-mainnet".
	Chain string `mapstructure:"chain"`
}

// SyncConfig holds scheduler tuning
type SyncConfig struct {
	DeltaInterval     time.Duration `mapstructure:"delta_interval"`
	HistoryInterval   time.Duration `mapstructure:"history_interval"`
	SnapshotSpec      string        `mapstructure:"snapshot_spec"`
	CleanupSpec       string        `mapstructure:"cleanup_spec"`
	SnapshotRetention time.Duration `mapstructure:"snapshot_retention"`
	HolderPageSize    int           `mapstructure:"holder_page_size"`
}

// PriceConfig holds price source configuration
type PriceConfig struct {
	BirdeyeAPIKey string `mapstructure:"birdeye_api_key"`
}

// ServerConfig holds the metrics/health HTTP listener configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RewardConfig holds reward selection defaults
type RewardConfig struct {
	MinHoldDays int `mapstructure:"min_hold_days"`
}

// Config is the full tracker service configuration
type Config struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig   `mapstructure:"database"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Price      PriceConfig      `mapstructure:"price"`
	Server     ServerConfig     `mapstructure:"server"`
	Reward     RewardConfig     `mapstructure:"reward"`
}

// Load reads configuration. configFile "" searches the default locations;
// envPath "" loads .env files from config/.
func Load(configFile string, envPath string) (*Config, error) {
	v := configureViper(configFile, envPath)

	// Set defaults
	v.SetDefault("log_format", "text")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("clickhouse.enabled", false)
	v.SetDefault("provider.name", "helius")
	v.SetDefault("sync.delta_interval", "5m")
	v.SetDefault("sync.history_interval", "30m")
	v.SetDefault("sync.snapshot_spec", "0 0 0 * * *")
	v.SetDefault("sync.cleanup_spec", "0 0 2 * * 0")
	v.SetDefault("sync.snapshot_retention", "2160h") // 90 days
	v.SetDefault("sync.holder_page_size", 100)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9090)
	v.SetDefault("reward.min_hold_days", 30)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Provider.Token == "" {
		return errors.New("provider.token is required")
	}
	switch c.Provider.Name {
	case "helius", "tatum":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	if c.Provider.RPCURL == "" && c.Provider.Name == "helius" {
		return errors.New("provider.rpc_url is required for helius")
	}
	if c.Provider.APIKey == "" && c.Provider.Name == "tatum" {
		return errors.New("provider.api_key is required for tatum")
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	return nil
}

// configureViper returns a viper instance with the config file and
// environment variables set
func configureViper(configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("HOLDER_REWARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables.
// This is required for viper to map env vars to config struct fields when
// no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"log_format",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		// ClickHouse
		"clickhouse.dsn",
		"clickhouse.database",
		"clickhouse.enabled",
		// Provider
		"provider.name",
		"provider.token",
		"provider.rpc_url",
		"provider.ws_url",
		"provider.api_key",
		"provider.chain",
		// Sync
		"sync.delta_interval",
		"sync.history_interval",
		"sync.snapshot_spec",
		"sync.cleanup_spec",
		"sync.snapshot_retention",
		"sync.holder_page_size",
		// Price
		"price.birdeye_api_key",
		// Server
		"server.host",
		"server.port",
		// Reward
		"reward.min_hold_days",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from .env files
func loadEnv(envPath string) {
	if envPath == "" {
		envPath = "config/"
	}
	for _, envFile := range []string{".env", ".env.local"} {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // later files override earlier ones
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
