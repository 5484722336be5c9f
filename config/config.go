// Package config loads application configuration from config files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings shared by every command of the client.
type Config struct {
	Env        string    `mapstructure:"env"`         // current application environment (local, dev, prod etc)
	LMSAddress string    `mapstructure:"lms_address"` // address of the deployed aggregate contract
	ExamSource string    `mapstructure:"exam_source"` // exam binding variant: aggregate or standalone
	Generator  Generator `mapstructure:"generator"`   // question-generation service section
	Chain      Chain     `mapstructure:"chain"`       // simulated chain backend section
}

// Generator configures the question-generation service client.
type Generator struct {
	BaseURL string `mapstructure:"base_url"`
}

// Chain configures the local chain backend used by the CLI.
type Chain struct {
	Store    string   `mapstructure:"store"`    // state store: memory or db
	DBPath   string   `mapstructure:"db_path"`  // sqlite file path for the db store
	Accounts []string `mapstructure:"accounts"` // accounts the wallet exposes, first is active
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("env", "local")
	v.SetDefault("lms_address", "0x0000000000000000000000000000000000000001")
	v.SetDefault("exam_source", "aggregate")
	v.SetDefault("generator.base_url", "http://localhost:5000")
	v.SetDefault("chain.store", "memory")
	v.SetDefault("chain.db_path", "lms.db")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("LMS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	switch cfg.ExamSource {
	case "aggregate", "standalone":
	default:
		return nil, fmt.Errorf("unknown exam_source %q", cfg.ExamSource)
	}
	switch cfg.Chain.Store {
	case "memory", "db":
	default:
		return nil, fmt.Errorf("unknown chain store %q", cfg.Chain.Store)
	}

	return &cfg, nil
}
