// Package config provides a reusable loader for the ledger engine's
// configuration files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"ledgerengine/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a ledgerctl process. It mirrors
// the structure of the YAML files under cmd/config and the ambient-stack
// fields SPEC_FULL.md assigns to C11 (storage path, genesis symbol table,
// initial balances, blockchain-mode flag, logging level).
type Config struct {
	Storage struct {
		Path string `mapstructure:"path" json:"path"`
	} `mapstructure:"storage" json:"storage"`

	Genesis struct {
		Identity        string            `mapstructure:"identity" json:"identity"`
		Symbols         map[string]string `mapstructure:"symbols" json:"symbols"`
		InitialBalances []struct {
			Identity string `mapstructure:"identity" json:"identity"`
			Symbol   string `mapstructure:"symbol" json:"symbol"`
			Amount   uint64 `mapstructure:"amount" json:"amount"`
		} `mapstructure:"initial_balances" json:"initial_balances"`
	} `mapstructure:"genesis" json:"genesis"`

	Consensus struct {
		Blockchain bool `mapstructure:"blockchain" json:"blockchain"`
	} `mapstructure:"consensus" json:"consensus"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // process environment variables override matching keys

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the LEDGER_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("LEDGER_ENV", ""))
}
