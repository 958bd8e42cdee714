package grid

import (
	"go.uber.org/zap"

	"github.com/askiada/go-gridcore/pkg/grid/diagnostics"
	pipelinemodel "github.com/askiada/go-gridcore/pkg/pipeline/model"
)

type options struct {
	logger       *zap.Logger
	handler      diagnostics.ErrorHandler
	beforeStep   func(step Step) error
	pipelineOpts []pipelinemodel.PipelineOption
}

// Option configures Initialize.
type Option func(o *options)

// WithLogger uses logger instead of building one from the configured log level.
// The handle does not sync a logger it does not own.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithErrorHandler routes every reported error to h instead of diagnostics.DefaultHandler.
func WithErrorHandler(h diagnostics.ErrorHandler) Option {
	return func(o *options) {
		o.handler = h
	}
}

// WithBeforeStep calls fn before each bootstrap step. An error fails the step.
func WithBeforeStep(fn func(step Step) error) Option {
	return func(o *options) {
		o.beforeStep = fn
	}
}

// WithPipelineOption attaches options such as measure.PipelineMeasure to the pipeline.
func WithPipelineOption(opts ...pipelinemodel.PipelineOption) Option {
	return func(o *options) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	return o
}
