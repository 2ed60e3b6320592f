// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Oracle    OracleConfig    `yaml:"oracle" mapstructure:"oracle"`
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	Geo       GeoConfig       `yaml:"geo" mapstructure:"geo"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// OracleConfig configures the normalization oracle client.
type OracleConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// LedgerConfig configures price recording.
type LedgerConfig struct {
	DedupWindowMins int    `yaml:"dedup_window_mins" mapstructure:"dedup_window_mins"`
	DefaultCurrency string `yaml:"default_currency" mapstructure:"default_currency"`
}

// GeoConfig configures nearby-price queries.
type GeoConfig struct {
	DefaultRadiusKm float64 `yaml:"default_radius_km" mapstructure:"default_radius_km"`
	ProductLimit    int     `yaml:"product_limit" mapstructure:"product_limit"`
	VenueLimit      int     `yaml:"venue_limit" mapstructure:"venue_limit"`
}

// NormalizeConfig configures receipt normalization.
type NormalizeConfig struct {
	MaxConcurrentLines int `yaml:"max_concurrent_lines" mapstructure:"max_concurrent_lines"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECONCILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "reconcile.db")
	v.SetDefault("oracle.base_url", "http://localhost:8000")
	v.SetDefault("oracle.timeout_secs", 30)
	v.SetDefault("oracle.max_retries", 3)
	v.SetDefault("oracle.rate_per_sec", 10)
	v.SetDefault("ledger.dedup_window_mins", 60)
	v.SetDefault("ledger.default_currency", "CAD")
	v.SetDefault("geo.default_radius_km", 10)
	v.SetDefault("geo.product_limit", 15)
	v.SetDefault("geo.venue_limit", 10)
	v.SetDefault("normalize.max_concurrent_lines", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
