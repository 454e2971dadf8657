// Package config provides configuration types for the trackify agent.
//
// Configuration comes from trackify.yaml and TRACKIFY_* environment
// variables. Durations are kept as strings ("4s", "10s") so that they
// round-trip through YAML unchanged; use the accessor methods to read them.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Positioner sources.
const (
	SourceStatic = "static"
	SourceReplay = "replay"
	SourceDenied = "denied"
)

// TrackifyConfig is the top-level configuration.
type TrackifyConfig struct {
	// Backend configures the tracking REST API.
	Backend BackendConfig `yaml:"backend" mapstructure:"backend"`

	// Sampler configures the location sampler.
	Sampler SamplerConfig `yaml:"sampler" mapstructure:"sampler"`

	// Positioner selects the positioning capability of this agent.
	Positioner PositionerConfig `yaml:"positioner" mapstructure:"positioner"`

	// Server configures the local web surface and logging.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Credentials are used by the headless commands (track, users, inspect).
	// Optional: the web surface asks for them interactively.
	Credentials CredentialsConfig `yaml:"credentials" mapstructure:"credentials"`

	// Map configures the map renderer.
	Map MapConfig `yaml:"map" mapstructure:"map"`

	// Telemetry configures OpenTelemetry export of backend calls.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// Output configures terminal output of the CLI.
	Output OutputConfig `yaml:"output" mapstructure:"output"`

	// DevMode enables development features (debug logging, a local backend).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// BackendConfig configures the tracking REST API.
type BackendConfig struct {
	// BaseURL is the API root, e.g. "https://api.trackify.example".
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	// Timeout bounds each request (e.g., "10s").
	// Default: "10s".
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty,duration"`
}

// SamplerConfig configures the location sampler.
type SamplerConfig struct {
	// Interval is the fixed sampling cadence.
	// Default: "4s".
	Interval string `yaml:"interval" mapstructure:"interval" validate:"omitempty,duration"`
	// HighAccuracy asks the positioner for its most precise fix.
	// Default: true.
	HighAccuracy bool `yaml:"high_accuracy" mapstructure:"high_accuracy"`
}

// PositionerConfig selects where positions come from.
type PositionerConfig struct {
	// Source is "static", "replay" or "denied".
	// Default: "static".
	Source string `yaml:"source" mapstructure:"source" validate:"omitempty,oneof=static replay denied"`
	// Latitude, Longitude and Accuracy are used by the static source.
	Latitude  float64 `yaml:"latitude" mapstructure:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" mapstructure:"longitude" validate:"gte=-180,lte=180"`
	Accuracy  float64 `yaml:"accuracy" mapstructure:"accuracy" validate:"gte=0"`
	// Speed in m/s for the static source. Negative means "not reported".
	// Default: -1.
	Speed float64 `yaml:"speed" mapstructure:"speed"`
	// ReplayFile is the YAML track played by the replay source.
	ReplayFile string `yaml:"replay_file" mapstructure:"replay_file"`
}

// ServerConfig configures the local web surface.
type ServerConfig struct {
	// HTTPAddr is the listen address of the web surface.
	// Default: "127.0.0.1:5173".
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`
	// LogLevel is debug, info, warn or error.
	// Default: "info".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// CredentialsConfig holds a login for headless commands.
type CredentialsConfig struct {
	Email    string `yaml:"email" mapstructure:"email" validate:"omitempty,email"`
	Password string `yaml:"password" mapstructure:"password"`
}

// MapConfig configures the map renderer.
type MapConfig struct {
	// BaseURL is the OpenStreetMap site used for embeds and links.
	// Default: "https://www.openstreetmap.org".
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	// Zoom is the initial zoom level.
	// Default: 15.
	Zoom int `yaml:"zoom" mapstructure:"zoom" validate:"omitempty,min=1,max=19"`
}

// TelemetryConfig configures OpenTelemetry.
type TelemetryConfig struct {
	// Enabled exports backend spans and request metrics to stdout.
	// Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Interval is the metric export interval.
	// Default: "30s".
	Interval string `yaml:"interval" mapstructure:"interval" validate:"omitempty,duration"`
}

// OutputConfig configures CLI output.
type OutputConfig struct {
	// Colors enables ANSI colors.
	// Default: true.
	Colors bool `yaml:"colors" mapstructure:"colors"`
}

// BackendTimeout returns the parsed request timeout.
func (c *TrackifyConfig) BackendTimeout() time.Duration {
	return parseDuration(c.Backend.Timeout, 10*time.Second)
}

// SampleInterval returns the parsed sampler interval.
func (c *TrackifyConfig) SampleInterval() time.Duration {
	return parseDuration(c.Sampler.Interval, 4*time.Second)
}

// TelemetryInterval returns the parsed metric export interval.
func (c *TrackifyConfig) TelemetryInterval() time.Duration {
	return parseDuration(c.Telemetry.Interval, 30*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// SetDevDefaults applies permissive defaults for development mode.
// These defaults are applied BEFORE validation so required fields are satisfied.
func (c *TrackifyConfig) SetDevDefaults() {
	if !c.DevMode {
		return
	}

	// A backend running on the same machine.
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:7777"
	}
	c.Server.LogLevel = "debug"
}

// SetDefaults applies sensible default values to the configuration.
func (c *TrackifyConfig) SetDefaults() {
	if c.Backend.Timeout == "" {
		c.Backend.Timeout = "10s"
	}

	if c.Sampler.Interval == "" {
		c.Sampler.Interval = "4s"
	}
	// viper.IsSet distinguishes "not set" (zero value) from "explicitly false".
	if !viper.IsSet("sampler.high_accuracy") {
		c.Sampler.HighAccuracy = true
	}

	if c.Positioner.Source == "" {
		c.Positioner.Source = SourceStatic
	}
	if !viper.IsSet("positioner.speed") {
		c.Positioner.Speed = -1
	}

	// Bind to localhost only; the web surface holds a live session.
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:5173"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Map.BaseURL == "" {
		c.Map.BaseURL = "https://www.openstreetmap.org"
	}
	if c.Map.Zoom == 0 {
		c.Map.Zoom = 15
	}

	if c.Telemetry.Interval == "" {
		c.Telemetry.Interval = "30s"
	}

	if !viper.IsSet("output.colors") {
		c.Output.Colors = true
	}
}
