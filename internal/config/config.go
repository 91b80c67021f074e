package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for rulenet.
// Values are populated from .rulenet.yaml, RULENET_* env vars, and CLI flags.
type Config struct {
	DBPath      string  `mapstructure:"db_path"`
	RulesFile   string  `mapstructure:"rules_file"`
	ListenAddr  string  `mapstructure:"listen_addr"`
	Action      bool    `mapstructure:"action"`
	Temperature float64 `mapstructure:"temperature"`
	Seed        uint64  `mapstructure:"seed"`
	Verbose     bool    `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("db_path", "rulenet.db")
	viper.SetDefault("rules_file", "rules.toml")
	viper.SetDefault("listen_addr", "127.0.0.1:50071")
	viper.SetDefault("action", false)
	viper.SetDefault("temperature", 0.01)
	viper.SetDefault("seed", 0)
	viper.SetDefault("verbose", false)

	viper.SetEnvPrefix("RULENET")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if !(cfg.Temperature > 0) {
		return Config{}, fmt.Errorf("temperature must be positive, got %g", cfg.Temperature)
	}
	if cfg.RulesFile == "" {
		return Config{}, fmt.Errorf("rules_file must be set")
	}
	return cfg, nil
}
