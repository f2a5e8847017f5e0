// internal/source/factory.go - Fetcher factory implementation
package source

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/valpere/mapml_features/internal"
	"github.com/valpere/mapml_features/internal/config"
)

// Factory creates appropriate fetchers based on configuration
type Factory struct {
	config *config.Config
	fs     afero.Fs
	logger *slog.Logger
}

// NewFactory creates a new fetcher factory. A nil fsys means the OS filesystem.
func NewFactory(cfg *config.Config, fsys afero.Fs, logger *slog.Logger) *Factory {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{config: cfg, fs: fsys, logger: logger}
}

// ForLocation creates the fetcher that serves location
func (f *Factory) ForLocation(location string) (Fetcher, error) {
	return f.ForType(f.config.DetermineSourceType(location))
}

// ForType creates a fetcher for a specific source type
func (f *Factory) ForType(sourceType internal.SourceType) (Fetcher, error) {
	switch sourceType {
	case internal.SourceTypeHTTP:
		return NewHTTPFetcher(f.config, f.logger), nil
	case internal.SourceTypeLocal:
		return f.Local(), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}

// Local creates the local filesystem fetcher
func (f *Factory) Local() *LocalFetcher {
	return NewLocalFetcher(f.fs, f.config.Source.BasePath)
}
