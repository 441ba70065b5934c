// Package config loads the archiver configuration from an optional YAML
// file, a .env file, and environment variables, in increasing precedence.
// The contract matches the original deployment: a .env next to the cron
// job carrying DEVICE_NAME, DEVICE_MAC, DB_PATH and LOCAL_TIMEZONE.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultDBPath is used when DB_PATH is unset.
const DefaultDBPath = "~/Documents/aranet4.db"

// Config holds everything the CLI needs to run a command.
type Config struct {
	DeviceName    string `yaml:"device_name"`
	DeviceMAC     string `yaml:"device_mac"`
	DBPath        string `yaml:"db_path"`
	LocalTimezone string `yaml:"local_timezone"`
	LogLevel      string `yaml:"log_level"`
}

// Load reads configuration in three layers:
//
//  1. the YAML file at path, when path is non-empty and the file exists
//  2. a .env file in the working directory, loaded into the environment
//     without overriding variables already set
//  3. environment variables DEVICE_NAME, DEVICE_MAC, DB_PATH,
//     LOCAL_TIMEZONE, LOG_LEVEL
//
// Later layers win. DBPath defaults to ~/Documents/aranet4.db and a
// leading ~ is expanded.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Best effort: absence of .env is the common case on dev machines.
	_ = godotenv.Load()

	overlay(&cfg.DeviceName, "DEVICE_NAME")
	overlay(&cfg.DeviceMAC, "DEVICE_MAC")
	overlay(&cfg.DBPath, "DB_PATH")
	overlay(&cfg.LocalTimezone, "LOCAL_TIMEZONE")
	overlay(&cfg.LogLevel, "LOG_LEVEL")

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	expanded, err := ExpandHome(cfg.DBPath)
	if err != nil {
		return Config{}, err
	}
	cfg.DBPath = expanded

	return cfg, nil
}

// Validate checks the fields a fetch needs. Retrieval commands only need
// DBPath, which always has a default, so they skip this.
func (c Config) Validate() error {
	if c.DeviceName == "" || c.DeviceName == "XXX" {
		return fmt.Errorf("device_name not set: have you configured .env?")
	}
	if c.DeviceMAC == "" || c.DeviceMAC == "XXX" {
		return fmt.Errorf("device_mac not set: have you configured .env?")
	}
	return nil
}

// ExpandHome replaces a leading ~ with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

func overlay(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
