package pipeline

import (
	"go.uber.org/zap"

	"github.com/askiada/go-gridcore/pkg/pipeline/model"
)

type Option func(p *Pipeline)

// WithReporter sends registration and teardown errors to r.
func WithReporter(r Reporter) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.reporter = r
		}
	}
}

// WithLogger logs registrations and runs at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPipelineOption attaches features such as measure or drawer to the pipeline.
func WithPipelineOption(opts ...model.PipelineOption) Option {
	return func(p *Pipeline) {
		p.opts = append(p.opts, opts...)
	}
}
