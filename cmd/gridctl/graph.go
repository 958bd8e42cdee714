package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-gridcore/pkg/grid"
	"github.com/askiada/go-gridcore/pkg/pipeline/drawer"
	"github.com/askiada/go-gridcore/pkg/pipeline/measure"
)

type graphFlags struct {
	out     string
	measure bool
}

func newGraphCmd(root *rootFlags) *cobra.Command {
	flags := &graphFlags{}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Draw the registration tables as a Graphviz DOT graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var msr measure.Measure
			var h *grid.Handle
			var err error
			if flags.measure {
				dm := measure.NewDefaultMeasure()
				msr = dm
				h, err = bootstrap(root, measure.PipelineMeasure(dm))
			} else {
				h, err = bootstrap(root)
			}
			if err != nil {
				return err
			}
			defer h.Dispose()

			if flags.measure {
				if err := runAll(cmd.Context(), h); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if flags.out != "" && flags.out != "-" {
				f, err := os.Create(flags.out)
				if err != nil {
					return errors.Wrapf(err, "unable to create %s", flags.out)
				}
				defer f.Close()
				w = f
			}

			return draw(w, h, msr)
		},
	}
	cmd.Flags().StringVarP(&flags.out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&flags.measure, "measure", false, "run every pipeline once and label stages with their computation time")

	return cmd
}

func draw(w io.Writer, h *grid.Handle, msr measure.Measure) error {
	d := drawer.NewDOTDrawer(w)
	if err := drawer.DrawTables(d, h.Pipeline.Tables(), msr); err != nil {
		return errors.Wrap(err, "unable to draw pipelines")
	}

	return nil
}

// runAll runs every pipeline once with default params.
func runAll(ctx context.Context, h *grid.Handle) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := h.Columns(ctx); err != nil {
		return err
	}
	if _, err := h.RowTree(ctx); err != nil {
		return err
	}
	if _, err := h.ExportMenu(ctx); err != nil {
		return err
	}
	st := h.State.Get()
	if len(st.Rows.IDs) > 0 && len(st.Columns.Visible()) > 0 {
		if _, err := h.ScrollToIndexes(ctx, 0, 0); err != nil {
			return err
		}
	}
	for _, field := range st.Columns.All {
		if _, err := h.CanBeReordered(ctx, field); err != nil {
			return err
		}
	}

	return nil
}
