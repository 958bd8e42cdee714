package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/go-gridcore/pkg/grid"
	"github.com/askiada/go-gridcore/pkg/grid/config"
	"github.com/askiada/go-gridcore/pkg/grid/diagnostics"
	pipelinemodel "github.com/askiada/go-gridcore/pkg/pipeline/model"
)

type rootFlags struct {
	configPath string
	logLevel   string
	exports    []string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:          "gridctl",
		Short:        "Bootstrap a grid and inspect its pre-processing pipelines",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "grid configuration file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level")
	cmd.PersistentFlags().StringSliceVar(&flags.exports, "export", nil, "export formats added to the export menu (csv, print)")

	cmd.AddCommand(newRunCmd(flags), newGraphCmd(flags))

	return cmd
}

// bootstrap loads the configuration and initializes a grid. Errors are logged to
// stderr by the diagnostics channel and returned to cobra.
func bootstrap(flags *rootFlags, pipelineOpts ...pipelinemodel.PipelineOption) (*grid.Handle, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	logger, err := diagnostics.NewLogger(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return nil, err
	}

	h, err := grid.Initialize(nil, cfg,
		grid.WithLogger(logger),
		grid.WithErrorHandler(&diagnostics.LogHandler{Logger: logger, Verbose: cfg.Debug}),
		grid.WithPipelineOption(pipelineOpts...),
	)
	if err != nil {
		_ = logger.Sync()
		return nil, errors.Wrap(err, "unable to initialize grid")
	}
	if err := registerExportMenu(h, flags.exports); err != nil {
		_ = h.Dispose()
		return nil, err
	}
	logger.Debug("grid ready", zap.Stringer("grid", h.ID()))

	return h, nil
}
