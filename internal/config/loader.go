package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configType is the config file format.
const configType = "yaml"

// ErrKeyNotFound indicates a dot-path lookup did not match any config key.
var ErrKeyNotFound = errors.New("key not found in config")

// Load reads, unmarshals, and validates the configuration file at path.
// A missing or unparseable file is a fatal configuration error; there is no
// implicit fallback config.
//
// The typed load goes through yaml.v3 rather than viper because viper
// lowercases map keys, which would corrupt person names in email_mapping and
// repository names in exclusions.repository_specific.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()

	unmarshalErr := yaml.Unmarshal(raw, &cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Lookup reads a single value from the configuration file by dot-notation
// path (e.g. "elasticsearch.commit_index"). Used by `gitpulse config get`
// so shell scripts can capture individual settings.
func Lookup(path, key string) (any, error) {
	viperCfg := viper.New()

	viperCfg.SetConfigFile(path)
	viperCfg.SetConfigType(configType)

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		return nil, fmt.Errorf("read config: %w", readErr)
	}

	if !viperCfg.IsSet(key) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return viperCfg.Get(key), nil
}
