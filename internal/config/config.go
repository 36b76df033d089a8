// Package config loads pipeline configuration from flags, environment, an
// optional .env file, and an optional config file, in that precedence order
// (SPEC_FULL.md §A.2), grounded on the teacher corpus's viper+godotenv
// layering pattern.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every setting the Orchestrator and CLI need at startup.
type Config struct {
	ArchiveBase string `mapstructure:"archive_base"`
	DBPath      string `mapstructure:"db_path"`

	HashWorkers        int `mapstructure:"hash_workers"`
	CopyWorkers        int `mapstructure:"copy_workers"`
	CopyWorkersNetwork int `mapstructure:"copy_workers_network"`

	Verbose     bool `mapstructure:"verbose"`
	Interactive bool `mapstructure:"interactive"`
}

const envPrefix = "NIGHTFOX_IMPORT"

// Load builds a Config from (highest to lowest precedence) flags, the
// environment, a local .env file, an optional config file, then defaults.
func Load(flags *pflag.FlagSet, configFile string) (Config, error) {
	_ = godotenv.Load() // optional, missing .env is not an error

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("archive_base", "")
	v.SetDefault("db_path", "")
	v.SetDefault("hash_workers", 0)         // 0 means "let hardware.Detect decide"
	v.SetDefault("copy_workers", 0)
	v.SetDefault("copy_workers_network", 0)
	v.SetDefault("verbose", false)
	v.SetDefault("interactive", false)
}

// Validate reports the first missing required field.
func (c Config) Validate() error {
	if c.ArchiveBase == "" {
		return fmt.Errorf("config: archive_base is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	return nil
}
