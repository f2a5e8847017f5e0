// internal/config/validation.go - Configuration validation
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate validates the configuration structure and values
func Validate(config *Config) error {
	if err := validateSource(&config.Source); err != nil {
		return fmt.Errorf("source configuration invalid: %w", err)
	}

	if err := validateMapML(&config.MapML); err != nil {
		return fmt.Errorf("mapml configuration invalid: %w", err)
	}

	if err := validateOutput(&config.Output); err != nil {
		return fmt.Errorf("output configuration invalid: %w", err)
	}

	if err := validateBatch(&config.Batch); err != nil {
		return fmt.Errorf("batch configuration invalid: %w", err)
	}

	if err := validateLogging(&config.Logging); err != nil {
		return fmt.Errorf("logging configuration invalid: %w", err)
	}

	return nil
}

// validateSource validates document source parameters
func validateSource(config *SourceConfig) error {
	validTypes := []string{"auto", "local", "http"}
	if !contains(validTypes, config.Type) {
		return fmt.Errorf("invalid type: %s, must be one of %v", config.Type, validTypes)
	}

	if config.BaseURL != "" {
		u, err := url.Parse(config.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("base_url must use http or https, got %q", u.Scheme)
		}
	}

	if config.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// validateMapML validates decoding parameters
func validateMapML(config *MapMLConfig) error {
	if strings.TrimSpace(config.Projection) == "" {
		return fmt.Errorf("projection is required")
	}

	if config.InitialZoom < 0 {
		return fmt.Errorf("initial_zoom must be non-negative")
	}

	s := config.Style
	if s.Opacity < 0 || s.Opacity > 1 {
		return fmt.Errorf("style opacity must be between 0 and 1")
	}
	if s.FillOpacity < 0 || s.FillOpacity > 1 {
		return fmt.Errorf("style fill_opacity must be between 0 and 1")
	}
	if s.Weight < 0 {
		return fmt.Errorf("style weight must be non-negative")
	}

	return nil
}

// validateOutput validates output configuration parameters
func validateOutput(config *OutputConfig) error {
	validFormats := []string{"geojson", "json"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid format: %s, must be one of %v", config.Format, validFormats)
	}

	if !config.Stdout && config.Directory == "" && config.Filename == "" {
		return fmt.Errorf("directory or filename is required when not using stdout")
	}

	if config.Simplify && config.SimplifyThreshold <= 0 {
		return fmt.Errorf("simplify_threshold must be positive when simplify is enabled")
	}

	return nil
}

// validateBatch validates batch processing configuration parameters
func validateBatch(config *BatchConfig) error {
	if config.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if config.Concurrency > 1000 {
		return fmt.Errorf("concurrency must not exceed 1000")
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// validateLogging validates logging configuration parameters
func validateLogging(config *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, config.Level) {
		return fmt.Errorf("invalid log level: %s, must be one of %v", config.Level, validLevels)
	}

	validFormats := []string{"text", "json"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid log format: %s, must be one of %v", config.Format, validFormats)
	}

	return nil
}

// contains checks if a string slice contains a specific string (case-insensitive)
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
