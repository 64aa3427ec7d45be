package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the beagled configuration file
// (~/.config/beagled/config.yaml). Pointer fields distinguish "not set" from
// zero values.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Resource selection defaults
	PreferredFlags *int64 `yaml:"preferred_flags"`
	RequiredFlags  *int64 `yaml:"required_flags"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "beagled", "config.yaml")
}

// loadConfig reads the config file if present. A missing file is not an
// error.
func loadConfig() Config {
	var cfg Config
	path := configPath()
	if path == "" {
		return cfg
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	_ = yaml.Unmarshal(raw, &cfg)
	return cfg
}
