// cmd/show.go - Query result paging command
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/mapml_features/internal/output"
	"github.com/valpere/mapml_features/internal/pagination"
	"github.com/valpere/mapml_features/internal/viewport"
	"github.com/valpere/mapml_features/pkg/mapml"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <location>",
	Short: "Show one feature of a MapML query result",
	Long: `Show one feature of a MapML query result document.

Query results are not decoded up front: only the requested feature is
decoded and written out, together with its position in the result.

Examples:
  # Show the first feature
  mapml-features show data/query.mapml

  # Show the last feature
  mapml-features show --prev data/query.mapml

  # Show the third feature as structured JSON
  mapml-features show --index 2 --format json data/query.mapml`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Int("index", 0, "zero-based index of the feature to show")
	showCmd.Flags().Bool("prev", false, "step back from the start, wrapping to the last feature")
	showCmd.Flags().Bool("count", false, "only print the number of features")
	showCmd.MarkFlagsMutuallyExclusive("index", "prev")
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	index, _ := cmd.Flags().GetInt("index")
	prev, _ := cmd.Flags().GetBool("prev")
	countOnly, _ := cmd.Flags().GetBool("count")

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Batch.Timeout)
	defer cancel()

	location := args[0]
	l, err := a.processor.Load(ctx, location, viewport.NewGroup())
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", location, err)
	}
	if l.Pager == nil {
		return fmt.Errorf("%s is a static document, use decode instead", location)
	}

	nav := pagination.NewNavigator(l.Pager)
	if countOnly {
		fmt.Fprintln(cmd.OutOrStdout(), nav.Count())
		return nil
	}

	var decoded *mapml.DecodedLayer
	if prev {
		decoded, err = nav.Prev()
	} else {
		decoded, err = nav.Go(index)
	}
	if err != nil {
		return fmt.Errorf("failed to show feature: %w", err)
	}

	writer, err := output.NewStreamWriter(a.formatterConfig(false), cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer writer.Close()

	if err := writer.Write(&output.Collection{
		Name:       location,
		Layers:     []*mapml.DecodedLayer{decoded},
		Projection: l.Metadata.Projection,
	}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Feature %s\n", nav.Label())
	return nil
}
