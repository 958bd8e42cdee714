package grid

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-gridcore/internal/store"
	"github.com/askiada/go-gridcore/pkg/grid/config"
	"github.com/askiada/go-gridcore/pkg/grid/diagnostics"
	"github.com/askiada/go-gridcore/pkg/grid/grouping"
	"github.com/askiada/go-gridcore/pkg/grid/locale"
	"github.com/askiada/go-gridcore/pkg/grid/model"
	"github.com/askiada/go-gridcore/pkg/grid/scroll"
	"github.com/askiada/go-gridcore/pkg/pipeline"
)

var stepKinds = map[Step]diagnostics.Kind{
	StepHandle:      diagnostics.KindConstruction,
	StepDiagnostics: diagnostics.KindConfig,
	StepState:       diagnostics.KindConfig,
	StepPipeline:    diagnostics.KindConstruction,
	StepGrouping:    diagnostics.KindRegistration,
	StepLocale:      diagnostics.KindConfig,
}

type bootstrap struct {
	opts    *options
	cfg     *config.Config
	channel *diagnostics.Channel
	h       *Handle
}

// Initialize bootstraps input, or a new handle when input is nil, from cfg.
// A nil cfg uses config.Default.
//
// Initializing a handle again with an equal config returns it unchanged. A different
// config fails with ErrAlreadyInitialized, use Reconfigure instead.
func Initialize(input *Handle, cfg *config.Config, opts ...Option) (*Handle, error) {
	o := newOptions(opts)
	if cfg == nil {
		cfg = config.Default()
	}

	b := &bootstrap{
		opts:    o,
		cfg:     cfg,
		channel: diagnostics.New(o.logger, o.handler),
	}

	if input != nil {
		input.mu.RLock()
		initialized, disposed, current := input.initialized, input.disposed, input.cfg
		input.mu.RUnlock()

		if initialized && !disposed {
			if configEqual(&current, cfg) {
				return input, nil
			}

			return nil, b.fail(StepHandle, ErrAlreadyInitialized)
		}
	}

	steps := []struct {
		step Step
		fn   func() error
	}{
		{StepHandle, func() error { return b.adoptHandle(input) }},
		{StepDiagnostics, b.attachDiagnostics},
		{StepState, b.seedStore},
		{StepPipeline, b.installPipeline},
		{StepGrouping, b.registerGrouping},
		{StepLocale, b.resolveLocale},
	}
	for _, s := range steps {
		if err := b.runStep(s.step, s.fn); err != nil {
			b.rollback()
			return nil, b.fail(s.step, err)
		}
	}

	h := b.h
	h.mu.Lock()
	h.cfg = *cfg
	h.initialized = true
	h.mu.Unlock()

	h.Diagnostics.Logger().Info("grid initialized",
		zap.String("locale", h.Locale().Tag.String()),
		zap.Int("rows", len(cfg.Rows)),
		zap.Int("columns", len(cfg.Columns)),
	)

	return h, nil
}

var configCmpOpts = cmp.Options{cmpopts.EquateEmpty()}

func configEqual(a, b *config.Config) bool {
	return cmp.Equal(a, b, configCmpOpts)
}

func (b *bootstrap) runStep(step Step, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &diagnostics.PanicError{Value: r}
		}
	}()

	if b.opts.beforeStep != nil {
		if err := b.opts.beforeStep(step); err != nil {
			return err
		}
	}

	return fn()
}

// fail reports err through the channel attached so far and returns it as a *BootstrapError.
func (b *bootstrap) fail(step Step, err error) error {
	bErr := &BootstrapError{Step: step, Err: err}

	kind := stepKinds[step]
	var pErr *diagnostics.PanicError
	if errors.As(err, &pErr) {
		kind = diagnostics.KindPanic
	}
	b.channel.Report(fmt.Sprintf("bootstrap.%s", step), kind, bErr)

	return bErr
}

// rollback releases what the failed bootstrap built, so that the handle can be initialized again.
func (b *bootstrap) rollback() {
	h := b.h
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.releaseStages()
	if h.Pipeline != nil {
		_ = h.Pipeline.Dispose()
		h.Pipeline = nil
	}
	if h.State != nil {
		h.State.Close()
		h.State = nil
	}
	h.Diagnostics = nil
	h.text = nil
}

func (b *bootstrap) adoptHandle(input *Handle) error {
	h, err := InitializeHandle(input)
	if err != nil {
		return err
	}
	b.h = h

	return nil
}

func (b *bootstrap) attachDiagnostics() error {
	h := b.h

	logger := b.opts.logger
	owns := false
	if logger == nil {
		var err error
		logger, err = diagnostics.NewLogger(b.cfg.LogLevel, b.cfg.Debug)
		if err != nil {
			return err
		}
		owns = true
	}

	var chOpts []diagnostics.ChannelOption
	if b.cfg.Debug {
		chOpts = append(chOpts, diagnostics.Verbose())
	}
	channel := diagnostics.New(logger.With(zap.Stringer("grid", h.ID())), b.opts.handler, chOpts...)

	h.mu.Lock()
	h.Diagnostics = channel
	h.logger = channel.Logger()
	h.ownsLogger = owns
	h.mu.Unlock()

	b.channel = channel

	return nil
}

func (b *bootstrap) seedStore() error {
	if err := b.cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	st := store.New(seedState(b.cfg))

	b.h.mu.Lock()
	b.h.State = st
	b.h.mu.Unlock()

	return nil
}

func seedState(cfg *config.Config) store.State {
	st := store.State{
		Rows: store.RowsState{
			IDs:    cfg.RowIDs(),
			Lookup: make(map[model.RowID]model.Row, len(cfg.Rows)),
		},
		Columns:     model.NewColumnsState(cfg.Columns),
		Filter:      cfg.FilterModel.Clone(),
		RowGrouping: store.RowGroupingState{Model: append([]string(nil), cfg.RowGroupingModel...)},
		Locale:      cfg.Locale,
		RowHeight:   cfg.RowHeight,
	}
	for _, row := range cfg.Rows {
		if id, ok := row.ID(); ok {
			st.Rows.Lookup[id] = row
		}
	}

	return st
}

func (b *bootstrap) installPipeline() error {
	channel := b.channel
	pipe, err := pipeline.New(
		pipeline.WithReporter(pipelineReporter{channel: channel}),
		pipeline.WithLogger(channel.Named("pipeline")),
		pipeline.WithPipelineOption(b.opts.pipelineOpts...),
	)
	if err != nil {
		return err
	}

	b.h.mu.Lock()
	b.h.Pipeline = pipe
	b.h.mu.Unlock()

	builtins, err := scroll.Register(pipe, b.h.State)
	if err != nil {
		return errors.Wrap(err, "unable to register scroll stage")
	}

	b.h.mu.Lock()
	b.h.builtins = builtins
	b.h.mu.Unlock()

	return nil
}

func (b *bootstrap) registerGrouping() error {
	bundle, err := grouping.Register(b.h.Pipeline, b.h.State, grouping.WithHeaderName(b.h.groupingHeaderName))
	if err != nil {
		return err
	}

	b.h.mu.Lock()
	b.h.bundle = bundle
	b.h.mu.Unlock()

	return nil
}

// resolveLocale reads the tag from the state so that stages and text agree on it.
func (b *bootstrap) resolveLocale() error {
	text, err := locale.Resolve(b.h.State.Get().Locale, b.cfg.LocaleText)
	if err != nil {
		return err
	}

	b.h.mu.Lock()
	b.h.text = text
	b.h.mu.Unlock()

	return nil
}

// pipelineReporter forwards the rejections of the pipeline to the diagnostics channel.
type pipelineReporter struct {
	channel *diagnostics.Channel
}

func (r pipelineReporter) Report(op string, err error) {
	kind := diagnostics.KindRegistration
	if errors.Is(err, pipeline.ErrDisposed) {
		kind = diagnostics.KindTeardown
	}
	r.channel.Report(op, kind, err)
}
