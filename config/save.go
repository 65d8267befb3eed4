package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// defaultConfigPath is the default path for the config file
var defaultConfigPath = "config/config.json"

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultConfigPath
}

// SaveConfig saves the configuration to a file. Secrets resolved from the
// environment are written out too, so saved files should be kept private.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
