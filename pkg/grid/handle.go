package grid

import (
	"context"
	"sync"

	"github.com/google/uuid"
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

// Handle is the shared context of a grid instance. Diagnostics, State and Pipeline
// are assigned once by Initialize and must not be replaced.
type Handle struct {
	Diagnostics *diagnostics.Channel
	State       *store.Store
	Pipeline    *pipeline.Pipeline

	mu          sync.RWMutex
	id          uuid.UUID
	cfg         config.Config
	text        *locale.Text
	bundle      pipeline.Disposer
	builtins    pipeline.Disposer
	logger      *zap.Logger
	ownsLogger  bool
	initialized bool
	disposed    bool
}

// InitializeHandle adopts provided, or creates a new handle when it is nil.
// The same pointer is returned on every call with the same handle.
func InitializeHandle(provided *Handle) (*Handle, error) {
	if provided == nil {
		return &Handle{id: uuid.New()}, nil
	}

	provided.mu.Lock()
	defer provided.mu.Unlock()

	if provided.disposed {
		return nil, ErrHandleDisposed
	}
	if provided.id == uuid.Nil {
		provided.id = uuid.New()
	}

	return provided, nil
}

// ID identifies the grid instance in every log line.
func (h *Handle) ID() uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.id
}

// Locale returns the resolved locale text.
func (h *Handle) Locale() *locale.Text {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.text
}

// Initialized reports whether Initialize completed on the handle.
func (h *Handle) Initialized() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.initialized
}

// Disposed reports whether Dispose was called.
func (h *Handle) Disposed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.disposed
}

// Config returns a copy of the configuration the handle was initialized with.
func (h *Handle) Config() config.Config {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.cfg
}

// report sends err through the diagnostics channel once it is attached.
func (h *Handle) report(op string, kind diagnostics.Kind, err error) error {
	if h.Diagnostics != nil {
		h.Diagnostics.Report(op, kind, err)
	}

	return err
}

// Reconfigure applies cfg to an initialized handle: the grouping stages are registered
// again in place, the locale text is resolved again and the state is seeded again.
// The handle is left unchanged when cfg is invalid or the grouping stages are rejected.
//
// The state is seeded after the handle lock is released, so state listeners may call
// back into the handle.
func (h *Handle) Reconfigure(cfg *config.Config) error {
	const op = "grid.reconfigure"

	if cfg == nil {
		cfg = config.Default()
	}

	text, err := h.reconfigure(op, cfg)
	if err != nil {
		return err
	}

	if _, err := h.State.Update(func(st *store.State) {
		*st = seedState(cfg)
	}); err != nil {
		return h.report(op, diagnostics.KindTeardown, errors.Wrap(err, "unable to seed state"))
	}

	h.Diagnostics.Logger().Info("grid reconfigured", zap.String("locale", text.Tag.String()))

	return nil
}

// reconfigure commits everything but the state under the handle lock.
func (h *Handle) reconfigure(op string, cfg *config.Config) (*locale.Text, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed {
		return nil, h.report(op, diagnostics.KindTeardown, ErrHandleDisposed)
	}
	if !h.initialized {
		return nil, ErrNotInitialized
	}
	if err := cfg.Validate(); err != nil {
		return nil, h.report(op, diagnostics.KindConfig, errors.Wrap(err, "invalid config"))
	}

	text, err := locale.Resolve(cfg.Locale, cfg.LocaleText)
	if err != nil {
		return nil, h.report(op, diagnostics.KindConfig, errors.Wrap(err, "unable to resolve locale text"))
	}

	bundle, err := grouping.Register(h.Pipeline, h.State, grouping.WithHeaderName(h.groupingHeaderName))
	if err != nil {
		// stages the failed registration replaced now belong to partial
		h.bundle = chain(h.bundle, bundle)
		return nil, h.report(op, diagnostics.KindRegistration, err)
	}

	h.bundle = bundle
	h.text = text
	h.cfg = *cfg

	return text, nil
}

// groupingHeaderName reads the header of the grouping column from the current locale text.
func (h *Handle) groupingHeaderName() string {
	return h.Locale().Get(grouping.HeaderNameKey)
}

func chain(disposers ...pipeline.Disposer) pipeline.Disposer {
	return func() {
		for _, dispose := range disposers {
			if dispose != nil {
				dispose()
			}
		}
	}
}

// Dispose releases the grouping and scroll stages, disposes the pipeline, closes the store and
// flushes the logger. Calling it again fails with ErrHandleDisposed.
func (h *Handle) Dispose() error {
	const op = "grid.dispose"

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed {
		return h.report(op, diagnostics.KindTeardown, ErrHandleDisposed)
	}
	h.disposed = true

	h.releaseStages()

	var err error
	if h.Pipeline != nil {
		if pErr := h.Pipeline.Dispose(); pErr != nil {
			err = h.report(op, diagnostics.KindTeardown, errors.Wrap(pErr, "unable to dispose pipeline"))
		}
	}
	if h.State != nil {
		h.State.Close()
	}
	if h.logger != nil {
		h.logger.Debug("grid disposed")
		if h.ownsLogger {
			// stderr does not support sync on most platforms
			_ = h.logger.Sync()
		}
	}

	return err
}

// releaseStages removes the stages the handle registered. h.mu must be held.
func (h *Handle) releaseStages() {
	if h.bundle != nil {
		h.bundle()
		h.bundle = nil
	}
	if h.builtins != nil {
		h.builtins()
		h.builtins = nil
	}
}

func (h *Handle) checkRunnable() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.disposed {
		return h.report("grid.run", diagnostics.KindTeardown, ErrHandleDisposed)
	}
	if !h.initialized {
		return ErrNotInitialized
	}

	return nil
}

// Columns runs the hydrateColumns pipeline over the columns of the state.
func (h *Handle) Columns(ctx context.Context) (model.ColumnsState, error) {
	if err := h.checkRunnable(); err != nil {
		return model.ColumnsState{}, err
	}

	return pipeline.Run(ctx, h.Pipeline, pipeline.HydrateColumns, h.State.Get().Columns, nil)
}

// RowTree runs the rowTree pipeline from an empty tree.
func (h *Handle) RowTree(ctx context.Context) (model.RowTree, error) {
	if err := h.checkRunnable(); err != nil {
		return model.RowTree{}, err
	}

	return pipeline.Run(ctx, h.Pipeline, pipeline.RowTree, model.RowTree{}, nil)
}

// ExportMenu runs the exportMenu pipeline from an empty menu.
func (h *Handle) ExportMenu(ctx context.Context) ([]model.ExportMenuItem, error) {
	if err := h.checkRunnable(); err != nil {
		return nil, err
	}

	return pipeline.Run(ctx, h.Pipeline, pipeline.ExportMenu, []model.ExportMenuItem{}, nil)
}

// CanBeReordered tells whether the column field can be moved.
func (h *Handle) CanBeReordered(ctx context.Context, field string) (bool, error) {
	if err := h.checkRunnable(); err != nil {
		return false, err
	}

	return pipeline.Run(ctx, h.Pipeline, pipeline.CanBeReordered, true, pipeline.Params{"field": field})
}

// ScrollToIndexes computes the scroll position bringing the cell at the given indexes into view.
func (h *Handle) ScrollToIndexes(ctx context.Context, rowIndex, colIndex int) (model.ScrollPosition, error) {
	if err := h.checkRunnable(); err != nil {
		return model.ScrollPosition{}, err
	}

	params := pipeline.Params{scroll.RowIndexParam: rowIndex, scroll.ColIndexParam: colIndex}

	return pipeline.Run(ctx, h.Pipeline, pipeline.ScrollToIndexes, model.ScrollPosition{}, params)
}
