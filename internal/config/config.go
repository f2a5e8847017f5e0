// internal/config/config.go - Configuration management
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/mapml_features/internal"
	"github.com/valpere/mapml_features/pkg/mapml"
)

// Config represents the complete application configuration
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	MapML   MapMLConfig   `mapstructure:"mapml"`
	Output  OutputConfig  `mapstructure:"output"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig determines where documents are read from
type SourceConfig struct {
	Type       string            `mapstructure:"type"`
	BasePath   string            `mapstructure:"base_path"`
	BaseURL    string            `mapstructure:"base_url"`
	Headers    map[string]string `mapstructure:"headers"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	MaxRetries int               `mapstructure:"max_retries"`
	UserAgent  string            `mapstructure:"user_agent"`
}

// MapMLConfig controls how documents are decoded
type MapMLConfig struct {
	Projection      string      `mapstructure:"projection"`
	InitialZoom     int         `mapstructure:"initial_zoom"`
	ProjectionsFile string      `mapstructure:"projections_file"`
	Style           StyleConfig `mapstructure:"style"`
}

// StyleConfig holds the style options applied to every decoded feature
type StyleConfig struct {
	ClassName   string  `mapstructure:"class_name"`
	Color       string  `mapstructure:"color"`
	Weight      float64 `mapstructure:"weight"`
	Opacity     float64 `mapstructure:"opacity"`
	FillColor   string  `mapstructure:"fill_color"`
	FillOpacity float64 `mapstructure:"fill_opacity"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format            string  `mapstructure:"format"`
	Directory         string  `mapstructure:"directory"`
	Filename          string  `mapstructure:"filename"`
	Compression       bool    `mapstructure:"compression"`
	Pretty            bool    `mapstructure:"pretty"`
	Stdout            bool    `mapstructure:"stdout"`
	Simplify          bool    `mapstructure:"simplify"`
	SimplifyThreshold float64 `mapstructure:"simplify_threshold"`
}

// BatchConfig contains batch processing configuration
type BatchConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	FailOnError bool          `mapstructure:"fail_on_error"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	setDefaults(viper.GetViper())

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "failed to unmarshal configuration", err)
	}

	if err := Validate(&config); err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "configuration validation failed", err)
	}

	return &config, nil
}

// Defaults returns the configuration with every default applied
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.type", "auto")
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.user_agent", "MapMLFeatures/1.0")

	// MapML defaults
	v.SetDefault("mapml.projection", "OSMTILE")
	v.SetDefault("mapml.initial_zoom", 0)

	// Output defaults
	v.SetDefault("output.format", "geojson")
	v.SetDefault("output.pretty", true)
	v.SetDefault("output.compression", false)
	v.SetDefault("output.stdout", true)
	v.SetDefault("output.simplify", false)
	v.SetDefault("output.simplify_threshold", 0.0001)

	// Batch defaults
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.timeout", 5*time.Minute)
	v.SetDefault("batch.fail_on_error", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// StyleOptions converts the configured style to decoder options
func (c *Config) StyleOptions() mapml.StyleOptions {
	s := c.MapML.Style
	return mapml.StyleOptions{
		ClassName:   s.ClassName,
		Color:       s.Color,
		Weight:      s.Weight,
		Opacity:     s.Opacity,
		FillColor:   s.FillColor,
		FillOpacity: s.FillOpacity,
	}
}

// DetermineSourceType picks the source for a document location. An explicit
// source type wins; otherwise URLs are fetched over HTTP and anything else is
// read from the local filesystem.
func (c *Config) DetermineSourceType(location string) internal.SourceType {
	switch internal.SourceType(strings.ToLower(c.Source.Type)) {
	case internal.SourceTypeLocal:
		return internal.SourceTypeLocal
	case internal.SourceTypeHTTP:
		return internal.SourceTypeHTTP
	}

	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return internal.SourceTypeHTTP
	}
	if c.Source.BaseURL != "" && c.Source.BasePath == "" {
		return internal.SourceTypeHTTP
	}
	return internal.SourceTypeLocal
}

// OutputPath builds the output file path for a document name
func (c *Config) OutputPath(name string) string {
	ext := ".geojson"
	if c.Output.Format == "json" {
		ext = ".json"
	}
	if c.Output.Compression {
		ext += ".gz"
	}
	filename := name + ext
	if c.Output.Filename != "" {
		filename = c.Output.Filename
	}
	return filepath.Join(c.Output.Directory, filename)
}
