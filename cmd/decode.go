// cmd/decode.go - Single document decoding command
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/mapml_features/internal/output"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <location>",
	Short: "Decode the features of a single MapML document",
	Long: `Decode the features of a single MapML document into GeoJSON or JSON.

The document is fetched from a URL or read from the local filesystem. Static
documents are decoded up front and partitioned by zoom; by default the
partition shown at the initial zoom is emitted. Query result documents are
paged through one feature at a time.

Examples:
  # Decode to stdout
  mapml-features decode data/roads.mapml

  # Decode the partition shown at zoom 12 inside a bounding box
  mapml-features decode --zoom 12 --bbox "-75.8,45.3,-75.6,45.5" data/roads.mapml

  # Decode every partition to a compressed file with statistics
  mapml-features decode --all --stats --compression --output roads.geojson data/roads.mapml`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	addSelectionFlags(decodeCmd)

	// Output flags
	decodeCmd.Flags().StringP("output", "o", "", "output file path (default: stdout)")
	decodeCmd.Flags().Bool("stats", false, "include decode statistics in output")
}

func runDecode(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	sel, err := selectionFromFlags(cmd)
	if err != nil {
		return err
	}
	outputPath, _ := cmd.Flags().GetString("output")
	stats, _ := cmd.Flags().GetBool("stats")

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Batch.Timeout)
	defer cancel()

	location := args[0]
	collection, err := a.processor.Convert(ctx, location, sel)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", location, err)
	}

	writer, err := output.NewWriter(appFs, a.writerConfig(stats), outputPath)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}

	if err := writer.Write(collection); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}

	if stats && collection.Stats != nil {
		s := collection.Stats
		fmt.Fprintf(os.Stderr, "Features: %d, Decoded: %d, Dropped: %d, Partitions: %d, Emitted: %d\n",
			s.TotalFeatures, s.DecodedFeatures, s.DroppedFeatures, s.Partitions, len(collection.Layers))
	}

	a.logger.Debug("decode finished", "location", location, "output", outputPath)
	return nil
}
