package grid_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/askiada/go-gridcore/internal/store"
	"github.com/askiada/go-gridcore/pkg/grid"
	"github.com/askiada/go-gridcore/pkg/grid/config"
	"github.com/askiada/go-gridcore/pkg/grid/diagnostics"
	"github.com/askiada/go-gridcore/pkg/grid/grouping"
	"github.com/askiada/go-gridcore/pkg/grid/model"
	"github.com/askiada/go-gridcore/pkg/grid/scroll"
	"github.com/askiada/go-gridcore/pkg/pipeline"
	"github.com/askiada/go-gridcore/pkg/pipeline/measure"
	pipelinemodel "github.com/askiada/go-gridcore/pkg/pipeline/model"
)

type captureHandler struct {
	mu   sync.Mutex
	errs []*diagnostics.GridError
}

func (c *captureHandler) HandleError(err *diagnostics.GridError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *captureHandler) all() []*diagnostics.GridError {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*diagnostics.GridError(nil), c.errs...)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Columns = []model.ColDef{{Field: "id"}, {Field: "name"}, {Field: "team", Groupable: true}}
	cfg.Rows = []model.Row{
		{"id": 1, "name": "Ada", "team": "core"},
		{"id": 2, "name": "Bob", "team": "ui"},
		{"id": 3, "name": "Cy", "team": "core"},
	}

	return cfg
}

func initialize(t *testing.T, cfg *config.Config, opts ...grid.Option) (*grid.Handle, *captureHandler) {
	t.Helper()

	handler := &captureHandler{}
	opts = append([]grid.Option{grid.WithLogger(zap.NewNop()), grid.WithErrorHandler(handler)}, opts...)
	h, err := grid.Initialize(nil, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if !h.Disposed() {
			_ = h.Dispose()
		}
	})

	return h, handler
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	h, handler := initialize(t, testConfig())

	assert.True(t, h.Initialized())
	assert.NotEqual(t, uuid.Nil, h.ID())
	require.NotNil(t, h.Diagnostics)
	require.NotNil(t, h.State)
	require.NotNil(t, h.Pipeline)
	require.NotNil(t, h.Locale())
	assert.Equal(t, "en-US", h.Locale().Tag.String())
	assert.Equal(t, []model.RowID{"1", "2", "3"}, h.State.Get().Rows.IDs)

	tree, err := h.RowTree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.RowID{"1", "2", "3"}, tree.Roots)

	cols, err := h.Columns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "team"}, cols.All)

	menu, err := h.ExportMenu(context.Background())
	require.NoError(t, err)
	assert.Empty(t, menu)

	pos, err := h.ScrollToIndexes(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ScrollPosition{Top: 104, Left: 100}, pos)

	assert.Empty(t, handler.all())
}

func TestInitializeNilConfig(t *testing.T) {
	t.Parallel()

	h, _ := initialize(t, nil)
	assert.Equal(t, *config.Default(), h.Config())

	tree, err := h.RowTree(context.Background())
	require.NoError(t, err)
	assert.True(t, tree.IsEmpty())
}

func TestInitializeStepOrder(t *testing.T) {
	t.Parallel()

	var steps []grid.Step
	initialize(t, testConfig(), grid.WithBeforeStep(func(step grid.Step) error {
		steps = append(steps, step)
		return nil
	}))

	assert.Equal(t, grid.Steps(), steps)
}

func TestInitializeFaultInjection(t *testing.T) {
	t.Parallel()

	for i, failing := range grid.Steps() {
		t.Run(string(failing), func(t *testing.T) {
			t.Parallel()

			injected := errors.Errorf("injected failure at %s", failing)
			handler := &captureHandler{}
			var steps []grid.Step

			h, err := grid.Initialize(nil, testConfig(),
				grid.WithLogger(zap.NewNop()),
				grid.WithErrorHandler(handler),
				grid.WithBeforeStep(func(step grid.Step) error {
					steps = append(steps, step)
					if step == failing {
						return injected
					}
					return nil
				}),
			)
			require.ErrorIs(t, err, injected)
			assert.Nil(t, h)

			var bErr *grid.BootstrapError
			require.ErrorAs(t, err, &bErr)
			assert.Equal(t, failing, bErr.Step)
			assert.Equal(t, grid.Steps()[:i+1], steps, "later steps must not run")

			reported := handler.all()
			require.Len(t, reported, 1)
			assert.Equal(t, "bootstrap."+string(failing), reported[0].Op)
			assert.ErrorIs(t, reported[0], injected)
		})
	}
}

func TestInitializePanickingStep(t *testing.T) {
	t.Parallel()

	handler := &captureHandler{}
	_, err := grid.Initialize(nil, testConfig(),
		grid.WithLogger(zap.NewNop()),
		grid.WithErrorHandler(handler),
		grid.WithBeforeStep(func(step grid.Step) error {
			if step == grid.StepPipeline {
				panic("boom")
			}
			return nil
		}),
	)

	var pErr *diagnostics.PanicError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "boom", pErr.Value)

	reported := handler.all()
	require.Len(t, reported, 1)
	assert.Equal(t, diagnostics.KindPanic, reported[0].Kind)
}

func TestInitializeInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RowGroupingModel = []string{"unknown"}
	handler := &captureHandler{}

	_, err := grid.Initialize(nil, cfg, grid.WithLogger(zap.NewNop()), grid.WithErrorHandler(handler))
	require.ErrorIs(t, err, config.ErrUnknownGroupingField)

	var bErr *grid.BootstrapError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, grid.StepState, bErr.Step)

	reported := handler.all()
	require.Len(t, reported, 1)
	assert.Equal(t, diagnostics.KindConfig, reported[0].Kind)
}

func TestInitializeInvalidLogLevelUsesFallbackChannel(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.LogLevel = "loud"
	handler := &captureHandler{}

	_, err := grid.Initialize(nil, cfg, grid.WithErrorHandler(handler))
	require.Error(t, err)

	var bErr *grid.BootstrapError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, grid.StepDiagnostics, bErr.Step)
	require.Len(t, handler.all(), 1)
}

func TestInitializeUnknownLocaleOverride(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.LocaleText = map[string]string{"notAKey": "x"}
	handler := &captureHandler{}

	_, err := grid.Initialize(nil, cfg, grid.WithLogger(zap.NewNop()), grid.WithErrorHandler(handler))

	var bErr *grid.BootstrapError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, grid.StepLocale, bErr.Step)
	require.Len(t, handler.all(), 1)
}

func TestInitializeProvidedHandle(t *testing.T) {
	t.Parallel()

	provided, err := grid.InitializeHandle(nil)
	require.NoError(t, err)

	again, err := grid.InitializeHandle(provided)
	require.NoError(t, err)
	assert.Same(t, provided, again)

	h, err := grid.Initialize(provided, testConfig(), grid.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer h.Dispose()
	assert.Same(t, provided, h)
	assert.Equal(t, provided.ID(), h.ID())
}

func TestInitializeTwice(t *testing.T) {
	t.Parallel()

	h, handler := initialize(t, testConfig())

	same, err := grid.Initialize(h, testConfig(), grid.WithErrorHandler(handler))
	require.NoError(t, err)
	assert.Same(t, h, same)

	other := testConfig()
	other.Locale = "fr-FR"
	_, err = grid.Initialize(h, other, grid.WithErrorHandler(handler))
	require.ErrorIs(t, err, grid.ErrAlreadyInitialized)
	assert.Equal(t, "en-US", h.Locale().Tag.String())

	reported := handler.all()
	require.Len(t, reported, 1)
	assert.Equal(t, diagnostics.KindConstruction, reported[0].Kind)
}

func TestInitializeAfterFailureCanBeRetried(t *testing.T) {
	t.Parallel()

	provided, err := grid.InitializeHandle(nil)
	require.NoError(t, err)

	_, err = grid.Initialize(provided, testConfig(),
		grid.WithLogger(zap.NewNop()),
		grid.WithErrorHandler(&captureHandler{}),
		grid.WithBeforeStep(func(step grid.Step) error {
			if step == grid.StepLocale {
				return assert.AnError
			}
			return nil
		}),
	)
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, provided.Initialized())
	assert.Nil(t, provided.Pipeline)

	h, err := grid.Initialize(provided, testConfig(), grid.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer h.Dispose()
	assert.Same(t, provided, h)
	assert.Len(t, pipeline.Stages(h.Pipeline, pipeline.RowTree), 2)
}

func TestInitializeDisposedHandle(t *testing.T) {
	t.Parallel()

	h, handler := initialize(t, testConfig())
	require.NoError(t, h.Dispose())

	_, err := grid.Initialize(h, testConfig(), grid.WithErrorHandler(handler))
	require.ErrorIs(t, err, grid.ErrHandleDisposed)

	var bErr *grid.BootstrapError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, grid.StepHandle, bErr.Step)

	_, err = grid.InitializeHandle(h)
	require.ErrorIs(t, err, grid.ErrHandleDisposed)
}

func TestInitializeLogs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	initialize(t, testConfig(), grid.WithLogger(zap.New(core)))

	entries := logs.FilterMessage("grid initialized").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "en-US", fields["locale"])
	assert.EqualValues(t, 3, fields["rows"])
	assert.NotEmpty(t, fields["grid"])
}

func TestPipelineRejectionsAreReported(t *testing.T) {
	t.Parallel()

	h, handler := initialize(t, testConfig())

	_, err := pipeline.Register(h.Pipeline, pipeline.CanBeReordered, "not valid",
		func(_ context.Context, v bool, _ pipeline.Params) (bool, error) { return v, nil })
	require.ErrorIs(t, err, pipeline.ErrInvalidStageID)

	reported := handler.all()
	require.Len(t, reported, 1)
	assert.Equal(t, diagnostics.KindRegistration, reported[0].Kind)
	assert.Equal(t, "pipeline.register", reported[0].Op)
}

func TestCanBeReordered(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RowGroupingModel = []string{"team"}
	h, _ := initialize(t, cfg)

	ok, err := h.CanBeReordered(context.Background(), "name")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.CanBeReordered(context.Background(), grouping.GroupingColumnField)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReconfigure(t *testing.T) {
	t.Parallel()

	h, _ := initialize(t, testConfig())
	tables := h.Pipeline.String()

	cfg := testConfig()
	cfg.Locale = "fr-FR"
	cfg.RowGroupingModel = []string{"team"}
	require.NoError(t, h.Reconfigure(cfg))

	assert.Equal(t, "fr-FR", h.Locale().Tag.String())
	assert.Equal(t, "fr-FR", h.State.Get().Locale)
	assert.Equal(t, tables, h.Pipeline.String(), "grouping stages are replaced in place")

	tree, err := h.RowTree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.RowID{
		grouping.GroupIDPrefix + "team/core",
		grouping.GroupIDPrefix + "team/ui",
	}, tree.Roots)

	same, err := grid.Initialize(h, cfg)
	require.NoError(t, err)
	assert.Same(t, h, same)
}

func TestReconfigureInvalidLeavesHandleUnchanged(t *testing.T) {
	t.Parallel()

	h, handler := initialize(t, testConfig())

	cfg := testConfig()
	cfg.Locale = "fr-FR"
	cfg.Columns = append(cfg.Columns, model.ColDef{Field: "id"})
	require.ErrorIs(t, h.Reconfigure(cfg), config.ErrDuplicateColumn)

	assert.Equal(t, "en-US", h.Locale().Tag.String())
	assert.Equal(t, "en-US", h.State.Get().Locale)
	assert.Equal(t, *testConfig(), h.Config())
	require.Len(t, handler.all(), 1)
}

func TestReconfigureNotInitialized(t *testing.T) {
	t.Parallel()

	h, err := grid.InitializeHandle(nil)
	require.NoError(t, err)
	require.ErrorIs(t, h.Reconfigure(testConfig()), grid.ErrNotInitialized)
}

func TestDispose(t *testing.T) {
	t.Parallel()

	h, handler := initialize(t, testConfig())
	require.NoError(t, h.Dispose())

	assert.True(t, h.Disposed())
	assert.True(t, h.Pipeline.Disposed())
	assert.True(t, h.State.Closed())
	assert.Empty(t, handler.all())

	require.ErrorIs(t, h.Dispose(), grid.ErrHandleDisposed)
	_, err := h.RowTree(context.Background())
	require.ErrorIs(t, err, grid.ErrHandleDisposed)
	require.ErrorIs(t, h.Reconfigure(testConfig()), grid.ErrHandleDisposed)

	reported := handler.all()
	require.Len(t, reported, 3)
	for _, r := range reported {
		assert.Equal(t, diagnostics.KindTeardown, r.Kind)
	}
}

func TestInitializeWithMeasure(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	h, _ := initialize(t, testConfig(), grid.WithPipelineOption(measure.PipelineMeasure(msr)))

	_, err := h.RowTree(context.Background())
	require.NoError(t, err)

	mt := msr.GetMetric("rowTree/" + grouping.FlatStageID)
	require.NotNil(t, mt)
	assert.EqualValues(t, 1, mt.Count())
}

func TestReconfigureListenersCanReadHandle(t *testing.T) {
	t.Parallel()

	h, _ := initialize(t, testConfig())

	var (
		locales []string
		configs []string
	)
	unsubscribe, err := h.State.Subscribe(func(_, _ store.State) {
		locales = append(locales, h.Locale().Tag.String())
		configs = append(configs, h.Config().Locale)
	})
	require.NoError(t, err)
	defer unsubscribe()

	cfg := testConfig()
	cfg.Locale = "fr-FR"

	done := make(chan error, 1)
	go func() { done <- h.Reconfigure(cfg) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reconfigure did not return")
	}

	assert.Equal(t, []string{"fr-FR"}, locales)
	assert.Equal(t, []string{"fr-FR"}, configs)
}

// rejectStage rejects the registration of a stage id once armed.
type rejectStage struct {
	pipelinemodel.PipelineOption
	mu     sync.Mutex
	id     string
	reject bool
}

func (r *rejectStage) arm(reject bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reject = reject
}

func (r *rejectStage) New() error { return nil }

func (r *rejectStage) OnRegister(stage *pipelinemodel.StageInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject && stage.ID == r.id {
		return assert.AnError
	}

	return nil
}

func (r *rejectStage) OnUnregister(*pipelinemodel.StageInfo) error { return nil }

func (r *rejectStage) OnStageOutput(*pipelinemodel.StageInfo, time.Duration) error { return nil }

func (r *rejectStage) Finish() error { return nil }

func TestReconfigureRejectedGroupingLeavesHandleUnchanged(t *testing.T) {
	t.Parallel()

	opt := &rejectStage{id: grouping.LockColumnStageID}
	h, handler := initialize(t, testConfig(), grid.WithPipelineOption(opt))
	tables := h.Pipeline.String()

	cfg := testConfig()
	cfg.Locale = "fr-FR"
	cfg.RowGroupingModel = []string{"team"}

	opt.arm(true)
	require.ErrorIs(t, h.Reconfigure(cfg), assert.AnError)

	assert.Equal(t, "en-US", h.Locale().Tag.String())
	assert.Equal(t, "en-US", h.State.Get().Locale)
	assert.Empty(t, h.State.Get().RowGrouping.Model)
	assert.Equal(t, *testConfig(), h.Config())
	assert.Equal(t, tables, h.Pipeline.String())

	var ops []string
	for _, r := range handler.all() {
		ops = append(ops, r.Op)
	}
	assert.Contains(t, ops, "grid.reconfigure")

	tree, err := h.RowTree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.RowID{"1", "2", "3"}, tree.Roots)

	opt.arm(false)
	require.NoError(t, h.Reconfigure(cfg))
	assert.Equal(t, tables, h.Pipeline.String())
	assert.Equal(t, "fr-FR", h.Config().Locale)

	require.NoError(t, h.Dispose())
}

func TestGroupingColumnHeaderFollowsLocale(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Locale = "fr-FR"
	cfg.RowGroupingModel = []string{"team"}
	h, _ := initialize(t, cfg)

	cols, err := h.Columns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Groupe", cols.Lookup[grouping.GroupingColumnField].HeaderName)

	cfg = testConfig()
	cfg.RowGroupingModel = []string{"team"}
	cfg.LocaleText = map[string]string{grouping.HeaderNameKey: "Team group"}
	require.NoError(t, h.Reconfigure(cfg))

	cols, err = h.Columns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Team group", cols.Lookup[grouping.GroupingColumnField].HeaderName)
}

func TestScrollToIndexes(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RowHeight = 30
	cfg.Columns[0].Width = 80
	h, _ := initialize(t, cfg)

	pos, err := h.ScrollToIndexes(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, model.ScrollPosition{Top: 30, Left: 180}, pos)

	_, err = h.ScrollToIndexes(context.Background(), 3, 0)
	require.ErrorIs(t, err, scroll.ErrIndexOutOfRange)
	_, err = h.ScrollToIndexes(context.Background(), 0, 3)
	require.ErrorIs(t, err, scroll.ErrIndexOutOfRange)

	cfg = testConfig()
	cfg.Columns[1].Hide = true
	require.NoError(t, h.Reconfigure(cfg))

	pos, err = h.ScrollToIndexes(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ScrollPosition{Top: 104, Left: 100}, pos)

	require.NoError(t, h.Dispose())
	assert.Empty(t, h.Pipeline.Tables())
}
