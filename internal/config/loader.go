package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for trackify.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself,
// which Viper's built-in SetConfigName would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("trackify")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: TRACKIFY_BACKEND_BASE_URL
	viper.SetEnvPrefix("TRACKIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a trackify config file
// with an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".trackify"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "trackify"))
		}
	} else {
		paths = append(paths, "/etc/trackify")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for trackify.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "trackify"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds every scalar config key for environment variable support.
// Example: TRACKIFY_SAMPLER_INTERVAL overrides sampler.interval
func bindNestedEnvKeys() {
	_ = viper.BindEnv("backend.base_url")
	_ = viper.BindEnv("backend.timeout")

	_ = viper.BindEnv("sampler.interval")
	_ = viper.BindEnv("sampler.high_accuracy")

	_ = viper.BindEnv("positioner.source")
	_ = viper.BindEnv("positioner.latitude")
	_ = viper.BindEnv("positioner.longitude")
	_ = viper.BindEnv("positioner.accuracy")
	_ = viper.BindEnv("positioner.speed")
	_ = viper.BindEnv("positioner.replay_file")

	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")

	_ = viper.BindEnv("credentials.email")
	_ = viper.BindEnv("credentials.password")

	_ = viper.BindEnv("map.base_url")
	_ = viper.BindEnv("map.zoom")

	_ = viper.BindEnv("telemetry.enabled")
	_ = viper.BindEnv("telemetry.interval")

	_ = viper.BindEnv("output.colors")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, and returns the TrackifyConfig.
func LoadConfig() (*TrackifyConfig, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}

	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults,
// but does NOT apply dev defaults or validate.
// Use this when CLI flags may override DevMode before validation.
func LoadConfigRaw() (*TrackifyConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only
	}

	var cfg TrackifyConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
