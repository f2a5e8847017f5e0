// cmd/root.go - Root command implementation
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/mapml_features/internal/logger"
	"github.com/valpere/mapml_features/internal/metrics"
)

var (
	cfgFile     string
	metricsFile string

	// appFs is the filesystem documents are read from and output is written to
	appFs afero.Fs = afero.NewOsFs()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mapml-features",
	Short: "Decode MapML features into GeoJSON",
	Long: `MapMLFeatures is a command-line tool for decoding the features of MapML
documents into renderable geometry. Coordinates in any MapML coordinate
system (gcrs, pcrs, tcrs, tilematrix) are projected through the document's
projection and emitted as GeoJSON or as structured JSON carrying both
geographic and projected coordinates.

Data Sources:
- Remote documents via HTTP/HTTPS
- Local files and directories, optionally gzipped
- Automatic source type detection

Features:
- Zoom-partitioned output matching what a map shows at a zoom level
- Bounding box queries over a spatial index
- One-at-a-time paging through query result documents
- Concurrent batch conversion of many documents

Examples:
  # Decode the features shown at the initial zoom
  mapml-features decode data/roads.mapml

  # Decode every zoom partition of a remote document
  mapml-features decode --all https://example.com/maps/roads.mapml --output roads.geojson

  # Decode features inside a lon/lat box at zoom 12
  mapml-features decode --zoom 12 --bbox "-75.8,45.3,-75.6,45.5" data/roads.mapml

  # Show the third feature of a query result
  mapml-features show --index 2 data/query.mapml

  # Simulate a map view and report what is displayed
  mapml-features view --zoom 14 --center "-75.7,45.4" data/roads.mapml

  # Batch convert a directory of documents
  mapml-features batch --dir data/ --output-dir ./output/`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if metricsFile == "" {
			return nil
		}
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mapml-features.yaml)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write decode metrics in Prometheus text format to this file")

	// Source configuration flags
	rootCmd.PersistentFlags().String("source-type", "auto", "data source type (auto, http, local)")
	rootCmd.PersistentFlags().String("base-url", "", "base URL for relative document locations (HTTP source)")
	rootCmd.PersistentFlags().String("base-path", "", "base path for relative document locations (local source)")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout (HTTP source)")
	rootCmd.PersistentFlags().Int("retries", 3, "number of retry attempts")

	// Decoding flags
	rootCmd.PersistentFlags().String("projection", "OSMTILE", "projection used when a document names none")
	rootCmd.PersistentFlags().Int("initial-zoom", 0, "host zoom level the map starts at")
	rootCmd.PersistentFlags().String("projections-file", "", "YAML file with additional projection definitions")

	// Output flags
	rootCmd.PersistentFlags().StringP("format", "f", "geojson", "output format (geojson, json)")
	rootCmd.PersistentFlags().Bool("pretty", true, "pretty print JSON output")
	rootCmd.PersistentFlags().Bool("compression", false, "compress output files")
	rootCmd.PersistentFlags().Bool("simplify", false, "simplify geometries with Douglas-Peucker")
	rootCmd.PersistentFlags().Float64("simplify-threshold", 0.0001, "simplification tolerance in output units")

	// Processing flags
	rootCmd.PersistentFlags().Int("concurrency", 4, "number of documents converted concurrently")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	// Bind flags to viper
	viper.BindPFlag("source.type", rootCmd.PersistentFlags().Lookup("source-type"))
	viper.BindPFlag("source.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	viper.BindPFlag("source.base_path", rootCmd.PersistentFlags().Lookup("base-path"))
	viper.BindPFlag("source.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("source.max_retries", rootCmd.PersistentFlags().Lookup("retries"))
	viper.BindPFlag("mapml.projection", rootCmd.PersistentFlags().Lookup("projection"))
	viper.BindPFlag("mapml.initial_zoom", rootCmd.PersistentFlags().Lookup("initial-zoom"))
	viper.BindPFlag("mapml.projections_file", rootCmd.PersistentFlags().Lookup("projections-file"))
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("output.pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.BindPFlag("output.compression", rootCmd.PersistentFlags().Lookup("compression"))
	viper.BindPFlag("output.simplify", rootCmd.PersistentFlags().Lookup("simplify"))
	viper.BindPFlag("output.simplify_threshold", rootCmd.PersistentFlags().Lookup("simplify-threshold"))
	viper.BindPFlag("batch.concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A .env file in the working directory seeds the environment
	_ = godotenv.Load(".env")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".mapml-features" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mapml-features")
	}

	// Environment variables, e.g. MAPML_FEATURES_MAPML_PROJECTION
	viper.SetEnvPrefix("MAPML_FEATURES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	_ = viper.ReadInConfig()
}

// setupLogging installs the process logger from the resolved configuration
func setupLogging(cmd *cobra.Command, args []string) error {
	l := logger.Setup(logger.Options{
		Level:  viper.GetString("logging.level"),
		Format: viper.GetString("logging.format"),
	})
	if used := viper.ConfigFileUsed(); used != "" {
		l.Debug("using config file", "path", used)
	}
	return nil
}
