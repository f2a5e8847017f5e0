// cmd/app.go - Shared command wiring
package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/valpere/mapml_features/internal"
	"github.com/valpere/mapml_features/internal/batch"
	"github.com/valpere/mapml_features/internal/config"
	"github.com/valpere/mapml_features/internal/logger"
	"github.com/valpere/mapml_features/internal/output"
	"github.com/valpere/mapml_features/internal/source"
	"github.com/valpere/mapml_features/pkg/crs"
)

// app bundles what every command needs
type app struct {
	config    *config.Config
	registry  *crs.Registry
	factory   *source.Factory
	processor *batch.Processor
	logger    *slog.Logger
}

// newApp loads configuration and builds the projection registry and fetchers
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.L()
	registry, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	factory := source.NewFactory(cfg, appFs, log)
	return &app{
		config:    cfg,
		registry:  registry,
		factory:   factory,
		processor: batch.NewProcessor(cfg, factory, registry, log),
		logger:    log,
	}, nil
}

// loadRegistry registers the configured projection definitions and fallback
func loadRegistry(cfg *config.Config) (*crs.Registry, error) {
	registry := crs.NewRegistry()

	if path := cfg.MapML.ProjectionsFile; path != "" {
		f, err := appFs.Open(path)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeConfig, "failed to open projections file", err)
		}
		defer f.Close()
		if _, err := registry.LoadDefinitions(f); err != nil {
			return nil, internal.NewError(internal.ErrorCodeConfig, "failed to load projections file", err)
		}
	}

	if err := registry.SetFallback(cfg.MapML.Projection); err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "invalid projection", err)
	}
	return registry, nil
}

// formatterConfig derives formatter options from the output configuration
func (a *app) formatterConfig(includeStats bool) output.FormatterConfig {
	return output.FormatterConfig{
		Format:            output.Format(a.config.Output.Format),
		Pretty:            a.config.Output.Pretty,
		IncludeStats:      includeStats,
		Simplify:          a.config.Output.Simplify,
		SimplifyThreshold: a.config.Output.SimplifyThreshold,
	}
}

// writerConfig derives writer options from the output configuration
func (a *app) writerConfig(includeStats bool) output.WriterConfig {
	return output.WriterConfig{
		FormatterConfig: a.formatterConfig(includeStats),
		Compression:     a.config.Output.Compression,
	}
}

// addSelectionFlags registers the flags read by selectionFromFlags
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("zoom", 0, "host zoom level to emit (default: initial zoom)")
	cmd.Flags().Bool("all", false, "emit every zoom partition")
	cmd.Flags().String("bbox", "", "bounding box: 'min_lon,min_lat,max_lon,max_lat'")
	cmd.MarkFlagsMutuallyExclusive("zoom", "all")
}

// selectionFromFlags reads the layer selection flags of cmd
func selectionFromFlags(cmd *cobra.Command) (batch.Selection, error) {
	var sel batch.Selection
	if cmd.Flags().Changed("zoom") {
		zoom, _ := cmd.Flags().GetInt("zoom")
		sel.Zoom = &zoom
	}
	sel.All, _ = cmd.Flags().GetBool("all")

	if s, _ := cmd.Flags().GetString("bbox"); s != "" {
		box, err := parseBoundingBox(s)
		if err != nil {
			return sel, fmt.Errorf("failed to parse bounding box: %w", err)
		}
		sel.BBox = &box
	}
	return sel, nil
}

// parseBoundingBox parses a bounding box string
func parseBoundingBox(bbox string) (orb.Bound, error) {
	coords, err := parsePair(bbox, 4)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("bounding box must have 4 values: min_lon,min_lat,max_lon,max_lat: %w", err)
	}
	if coords[0] > coords[2] || coords[1] > coords[3] {
		return orb.Bound{}, fmt.Errorf("bounding box minimum exceeds maximum")
	}
	return orb.Bound{
		Min: orb.Point{coords[0], coords[1]},
		Max: orb.Point{coords[2], coords[3]},
	}, nil
}

// parsePair parses n comma separated numbers
func parsePair(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(parts))
	}

	values := make([]float64, n)
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate value: %s", part)
		}
		values[i] = val
	}
	return values, nil
}
