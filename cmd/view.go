// cmd/view.go - Viewport simulation command
package cmd

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/valpere/mapml_features/internal/output"
	"github.com/valpere/mapml_features/internal/viewport"
	"github.com/valpere/mapml_features/pkg/crs"
)

// viewCmd represents the view command
var viewCmd = &cobra.Command{
	Use:   "view <location>",
	Short: "Report what a map view of a static MapML document displays",
	Long: `Load a static MapML document, move a simulated map to the given zoom and
center, and report the controller state: the effective zoom partition, how
many layers are displayed, whether the layer is visible and the scale the
partition is drawn with.

Examples:
  # Report the view at zoom 14 over Ottawa
  mapml-features view --zoom 14 --center "-75.7,45.4" data/roads.mapml

  # Also write the displayed layers, with polygon span parts
  mapml-features view --zoom 14 --center "-75.7,45.4" --subparts --output - data/lakes.mapml`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewCmd.Flags().Int("zoom", 0, "map zoom level")
	viewCmd.Flags().String("center", "0,0", "map center: 'lon,lat'")
	viewCmd.Flags().String("size", "1024,768", "viewport size in pixels: 'width,height'")
	viewCmd.Flags().Bool("subparts", false, "display polygon span parts")
	viewCmd.Flags().StringP("output", "o", "", "write the displayed layers to this path ('-' for stdout)")
}

func runView(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	zoom, _ := cmd.Flags().GetInt("zoom")
	centerStr, _ := cmd.Flags().GetString("center")
	sizeStr, _ := cmd.Flags().GetString("size")
	subparts, _ := cmd.Flags().GetBool("subparts")
	outputPath, _ := cmd.Flags().GetString("output")

	center, err := parsePair(centerStr, 2)
	if err != nil {
		return fmt.Errorf("failed to parse center: %w", err)
	}
	size, err := parsePair(sizeStr, 2)
	if err != nil {
		return fmt.Errorf("failed to parse size: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Batch.Timeout)
	defer cancel()

	location := args[0]
	group := viewport.NewGroup()
	l, err := a.processor.Load(ctx, location, group)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", location, err)
	}
	if !l.Static() {
		return fmt.Errorf("%s is a query result, use show instead", location)
	}

	view := viewport.View{
		Zoom:        zoom,
		PixelBounds: pixelBounds(l.Metadata.Projection, zoom, orb.Point{center[0], center[1]}, size[0], size[1]),
	}
	result := l.Controller.HandleMoveEnd(view)

	if subparts {
		for _, layer := range group.Layers() {
			l.Controller.AttachSubParts(layer)
		}
	}

	lo, hi := l.Controller.ZoomLimits()
	proj := l.Metadata.Projection
	fmt.Fprintf(cmd.ErrOrStderr(), "Projection: %s (%s)\n", proj.Name(), proj.Code())
	fmt.Fprintf(cmd.ErrOrStderr(), "State: %s, Zoom: %d (range %d-%d), Effective: %d, Visible: %t, Active: %d, Scale: %g\n",
		result.State, zoom, lo, hi, result.EffectiveZoom, result.Visible, result.Active, result.Scale)

	if outputPath == "" {
		return nil
	}

	writer, err := output.NewWriter(appFs, a.writerConfig(false), outputPath)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	if err := writer.Write(&output.Collection{Name: location, Layers: group.Layers(), Projection: proj}); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	return writer.Close()
}

// pixelBounds returns the TCRS box of a width x height viewport centred on a lon/lat point
func pixelBounds(proj crs.Projection, zoom int, center orb.Point, width, height float64) orb.Bound {
	c := proj.Transform(proj.Project(center), proj.Scale(zoom))
	return orb.Bound{
		Min: orb.Point{c.X() - width/2, c.Y() - height/2},
		Max: orb.Point{c.X() + width/2, c.Y() + height/2},
	}
}
