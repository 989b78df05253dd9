// Package config loads application configuration via viper and owns the
// global zap logger.
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
	// DataDir is where per-year input datasets live.
	DataDir string      `yaml:"data_dir" mapstructure:"data_dir"`
	Input   InputConfig `yaml:"input" mapstructure:"input"`
	Store   StoreConfig `yaml:"store" mapstructure:"store"`
	Log     LogConfig   `yaml:"log" mapstructure:"log"`
}

// InputConfig describes how per-year datasets are found and decoded.
type InputConfig struct {
	// Pattern is the per-year file name, with %d substituted by the year.
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	// Charset names the CSV encoding; empty means UTF-8.
	Charset string `yaml:"charset" mapstructure:"charset"`
	// Delimiter is the CSV field separator.
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
}

// StoreConfig configures the run-persistence backend.
type StoreConfig struct {
	// Driver selects the backend: "sqlite" or "postgres".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Path is the SQLite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from screener.yaml (working directory or
// ~/.screener), environment variables prefixed SCREENER_, and defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("screener")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.screener")

	v.SetEnvPrefix("SCREENER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", ".")
	v.SetDefault("input.pattern", "companies_%d.csv")
	v.SetDefault("input.delimiter", ",")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "screener.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
