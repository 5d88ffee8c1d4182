// Package config holds the process-wide configuration singleton: viper
// over environment variables, an optional config file discovered by
// walking up from the working directory, and a bootstrap key-value file
// under the brain root.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Explicitly locate config.yaml with SetConfigFile.
	// Precedence: project .brain/config.yaml > ~/.config/brain/config.yaml > ~/.brain/config.yaml
	configFileSet := false

	// 1. Walk up from CWD to find a project .brain/config.yaml, so
	//    commands work from subdirectories.
	cwd, err := os.Getwd()
	if err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".brain", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. User config directory (~/.config/brain/config.yaml)
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "brain", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory (~/.brain/config.yaml)
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".brain", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Environment variables take precedence over the config file.
	// E.g., BRAIN_ROOT, BRAIN_USER, BRAIN_ENRICH_WORKERS.
	v.SetEnvPrefix("BRAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("root", "")
	v.SetDefault("user", "")
	v.SetDefault("json", false)
	v.SetDefault("quiet", false)
	v.SetDefault("verbose", false)

	v.SetDefault("enrich.workers", 4)
	v.SetDefault("enrich.batch-size", 10)
	v.SetDefault("enrich.rate-limit", 60)
	v.SetDefault("enrich.checkpoint-file", "")

	v.SetDefault("decay.rate", 0.01)
	v.SetDefault("decay.floor", 0.3)

	v.SetDefault("resolver.cache-ttl", "24h")

	v.SetDefault("snapshot.retention-days", 30)
	v.SetDefault("snapshot.keep-monthly", true)

	v.SetDefault("index.stopwords", []string{})
	v.SetDefault("index.synonyms", map[string]string{})

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// The bootstrap file sits beneath config and env: values land only
	// where nothing else set the key.
	mergeBootstrap(Root())
	return nil
}

// mergeBootstrap reads <root>/.brain/bootstrap.toml and applies its
// flat key-value pairs as defaults.
func mergeBootstrap(root string) {
	if root == "" {
		return
	}
	path := filepath.Join(root, ".brain", "bootstrap.toml")
	var values map[string]interface{}
	if _, err := toml.DecodeFile(path, &values); err != nil {
		return // optional file; unreadable means absent
	}
	for key, value := range values {
		v.SetDefault(key, value)
	}
}

// Root resolves the brain root directory.
// Priority: BRAIN_ROOT (via viper "root") > walk-up .brain/ marker > ~/brain.
func Root() string {
	if v != nil {
		if root := v.GetString("root"); root != "" {
			return root
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			if info, err := os.Stat(filepath.Join(dir, ".brain")); err == nil && info.IsDir() {
				return dir
			}
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "brain")
	}
	return "."
}

// Actor resolves the acting identity for event attribution.
// Priority: --actor flag > BRAIN_USER > $USER > "unknown".
func Actor(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v != nil {
		if user := v.GetString("user"); user != "" {
			return user
		}
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "unknown"
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetFloat retrieves a float configuration value.
func GetFloat(key string) float64 {
	if v == nil {
		return 0
	}
	return v.GetFloat64(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// GetStringSlice retrieves a string slice configuration value.
func GetStringSlice(key string) []string {
	if v == nil {
		return []string{}
	}
	return v.GetStringSlice(key)
}

// GetStringMapString retrieves a map[string]string configuration value.
func GetStringMapString(key string) map[string]string {
	if v == nil {
		return map[string]string{}
	}
	return v.GetStringMapString(key)
}

// Set sets a configuration value (used for flag overrides).
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns all configuration settings as a map.
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}
