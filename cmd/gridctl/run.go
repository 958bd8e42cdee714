package main

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-gridcore/pkg/grid"
	"github.com/askiada/go-gridcore/pkg/pipeline"
)

var ErrUnknownPipeline = errors.New("unknown pipeline")

type runFlags struct {
	pipeline string
	field    string
	rowIndex int
	colIndex int
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline and print its output as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := bootstrap(root)
			if err != nil {
				return err
			}
			defer h.Dispose()

			out, err := runPipeline(cmd.Context(), h, flags)
			if err != nil {
				return err
			}

			return writeYAML(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&flags.pipeline, "pipeline", "p", string(pipeline.RowTree.Name()), "pipeline to run")
	cmd.Flags().StringVar(&flags.field, "field", "", "column field passed to canBeReordered")
	cmd.Flags().IntVar(&flags.rowIndex, "row-index", 0, "row index passed to scrollToIndexes")
	cmd.Flags().IntVar(&flags.colIndex, "col-index", 0, "column index passed to scrollToIndexes")

	return cmd
}

func runPipeline(ctx context.Context, h *grid.Handle, flags *runFlags) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	switch pipeline.Name(flags.pipeline) {
	case pipeline.HydrateColumns.Name():
		return h.Columns(ctx)
	case pipeline.RowTree.Name():
		return h.RowTree(ctx)
	case pipeline.ExportMenu.Name():
		return h.ExportMenu(ctx)
	case pipeline.ScrollToIndexes.Name():
		return h.ScrollToIndexes(ctx, flags.rowIndex, flags.colIndex)
	case pipeline.CanBeReordered.Name():
		if flags.field == "" {
			return nil, errors.New("--field is required by canBeReordered")
		}
		return h.CanBeReordered(ctx, flags.field)
	default:
		return nil, errors.Wrapf(ErrUnknownPipeline, "%q, expected one of %v", flags.pipeline, pipeline.Names())
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "unable to encode output")
	}

	return enc.Close()
}
