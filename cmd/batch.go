// cmd/batch.go - Batch processing command
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/mapml_features/internal/batch"
	"github.com/valpere/mapml_features/internal/output"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [location...]",
	Short: "Batch convert multiple MapML documents",
	Long: `Batch convert multiple MapML documents to GeoJSON or JSON.

Documents are named as arguments, found by scanning a local directory, or
both. They are converted concurrently and each is written to its own file in
the output directory.

Examples:
  # Convert every document under a directory
  mapml-features batch --dir data/ --output-dir ./output/

  # Convert remote documents, stopping at the first failure
  mapml-features batch --base-url "https://example.com/maps" roads.mapml lakes.mapml --fail-on-error

  # Convert every zoom partition with compression
  mapml-features batch --dir data/ --all --compression --concurrency 8`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addSelectionFlags(batchCmd)

	// Input flags
	batchCmd.Flags().String("dir", "", "local directory to scan for documents")

	// Output flags
	batchCmd.Flags().String("output-dir", "./output", "output directory for converted documents")
	batchCmd.Flags().Bool("stats", true, "include decode statistics in each output")

	// Processing flags
	batchCmd.Flags().Bool("fail-on-error", false, "stop processing on first error")
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	sel, err := selectionFromFlags(cmd)
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("dir")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	stats, _ := cmd.Flags().GetBool("stats")
	failOnError := a.config.Batch.FailOnError
	if cmd.Flags().Changed("fail-on-error") {
		failOnError, _ = cmd.Flags().GetBool("fail-on-error")
	}

	locations := append([]string(nil), args...)
	if dir != "" {
		found, err := a.factory.Local().List(dir)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", dir, err)
		}
		locations = append(locations, found...)
	}
	if len(locations) == 0 {
		return fmt.Errorf("no documents to process")
	}

	a.config.Output.Directory = outputDir
	a.config.Output.Filename = ""
	writerConfig := a.writerConfig(stats)
	sink := func(ctx context.Context, c *output.Collection) (string, error) {
		w, err := output.NewFileWriter(appFs, writerConfig, a.config.OutputPath(c.Name))
		if err != nil {
			return "", err
		}
		if err := w.Write(c); err != nil {
			w.Close()
			return w.Name(), err
		}
		return w.Name(), w.Close()
	}

	job := batch.NewJob(generateJobID(), locations, &batch.JobConfig{
		Concurrency: a.config.Batch.Concurrency,
		Timeout:     a.config.Batch.Timeout,
		FailOnError: failOnError,
		Selection:   sel,
	})

	a.logger.Info("starting batch job", "job", job.ID, "documents", len(locations), "concurrency", job.Config.Concurrency)

	runErr := batch.NewCoordinator(a.processor, sink, a.logger).Run(context.Background(), job)

	processed, success, failed := job.Progress.Snapshot()
	fmt.Fprintf(os.Stderr, "Processed: %d documents\n", processed)
	fmt.Fprintf(os.Stderr, "Success: %d, Failed: %d\n", success, failed)
	fmt.Fprintf(os.Stderr, "Features decoded: %d, dropped: %d\n", job.Progress.DecodedFeatures, job.Progress.DroppedFeatures)
	fmt.Fprintf(os.Stderr, "Duration: %v\n", time.Since(job.Progress.StartTime))

	if runErr != nil {
		return fmt.Errorf("batch processing failed: %w", runErr)
	}
	return nil
}

// generateJobID creates a unique job ID
func generateJobID() string {
	return fmt.Sprintf("batch-%d", time.Now().Unix())
}
