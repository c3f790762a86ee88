// Package config loads pushwork's merged configuration: built-in
// defaults overridden by the global config file, overridden by the
// per-root local config file (spec §6: "Merge order: built-in defaults
// < global < local").
//
// Grounded on cmd/client/main.go's loadConfig (viper config-path/env
// wiring), adapted from a single config file to pushwork's two-tier
// global/local merge, and on joho/godotenv for the optional `.env` load.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	globalConfigDirName = ".pushwork"
	configFileName      = "config"
	configFileType      = "json"
	localControlDir     = ".pushwork"
)

// Config is pushwork's resolved, validated configuration (spec §6).
type Config struct {
	SyncServer             string   `mapstructure:"sync_server"`
	SyncServerStorageID    string   `mapstructure:"sync_server_storage_id"`
	SyncEnabled            bool     `mapstructure:"sync_enabled"`
	ExcludePatterns        []string `mapstructure:"defaults.exclude_patterns"`
	MoveDetectionThreshold float64  `mapstructure:"sync.move_detection_threshold"`
	ArtifactDirectories    []string `mapstructure:"artifact_directories"`
}

// defaults mirrors spec §6's documented built-in values.
func defaults() Config {
	return Config{
		SyncEnabled:            true,
		ExcludePatterns:        []string{".git", "node_modules", "*.tmp", ".pushwork", ".DS_Store"},
		MoveDetectionThreshold: 0.7,
		ArtifactDirectories:    nil,
	}
}

// Load merges built-in defaults, the global config
// ($HOME/.pushwork/config.json), and the local config
// (<root>/.pushwork/config.json), in that order, then validates the
// result.
func Load(root string) (*Config, error) {
	_ = godotenv.Load() // ambient convenience; a missing .env is not an error

	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)

	def := defaults()
	v.SetDefault("sync_enabled", def.SyncEnabled)
	v.SetDefault("defaults.exclude_patterns", def.ExcludePatterns)
	v.SetDefault("sync.move_detection_threshold", def.MoveDetectionThreshold)
	v.SetDefault("artifact_directories", def.ArtifactDirectories)

	home, err := os.UserHomeDir()
	if err == nil {
		if err := mergeFile(v, filepath.Join(home, globalConfigDirName, configFileName+"."+configFileType)); err != nil {
			return nil, err
		}
	}
	if root != "" {
		if err := mergeFile(v, filepath.Join(root, localControlDir, configFileName+"."+configFileType)); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("PUSHWORK")
	v.AutomaticEnv()

	cfg := &Config{
		SyncServer:             v.GetString("sync_server"),
		SyncServerStorageID:    v.GetString("sync_server_storage_id"),
		SyncEnabled:            v.GetBool("sync_enabled"),
		ExcludePatterns:        v.GetStringSlice("defaults.exclude_patterns"),
		MoveDetectionThreshold: v.GetFloat64("sync.move_detection_threshold"),
		ArtifactDirectories:    v.GetStringSlice("artifact_directories"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile merges one config file's keys over v's current values, if
// the file exists. A missing file is not an error.
func mergeFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: merge %s: %w", path, err)
	}
	return nil
}

// Validate rejects a threshold outside [0,1] (spec §6).
func (c *Config) Validate() error {
	if c.MoveDetectionThreshold < 0 || c.MoveDetectionThreshold > 1 {
		return fmt.Errorf("config: sync.move_detection_threshold must be in [0,1], got %v", c.MoveDetectionThreshold)
	}
	return nil
}

// GlobalPath returns the global config file path for the current user.
func GlobalPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, globalConfigDirName, configFileName+"."+configFileType)
}

// LocalPath returns the local config file path for a root directory.
func LocalPath(root string) string {
	return filepath.Join(root, localControlDir, configFileName+"."+configFileType)
}
