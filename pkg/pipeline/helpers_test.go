package pipeline_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-gridcore/pkg/grid/model"
	"github.com/askiada/go-gridcore/pkg/pipeline"
)

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
	ops  []string
}

func (r *recordingReporter) Report(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) all() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]error(nil), r.errs...)
}

func newPipeline(t *testing.T, opts ...pipeline.Option) (*pipeline.Pipeline, *recordingReporter) {
	t.Helper()

	reporter := &recordingReporter{}
	pipe, err := pipeline.New(append([]pipeline.Option{pipeline.WithReporter(reporter)}, opts...)...)
	require.NoError(t, err)

	return pipe, reporter
}

// intStage adapts an int function to the ScrollToIndexes accumulator, Top holding the value.
func intStage(fn func(int) int) pipeline.Stage[model.ScrollPosition] {
	return func(_ context.Context, value model.ScrollPosition, _ pipeline.Params) (model.ScrollPosition, error) {
		value.Top = float64(fn(int(value.Top)))
		return value, nil
	}
}

func register(t *testing.T, pipe *pipeline.Pipeline, id string, fn func(int) int) pipeline.Disposer {
	t.Helper()

	dispose, err := pipeline.Register(pipe, pipeline.ScrollToIndexes, id, intStage(fn))
	require.NoError(t, err)

	return dispose
}

func run(t *testing.T, pipe *pipeline.Pipeline, x int) int {
	t.Helper()

	got, err := pipeline.Run(context.Background(), pipe, pipeline.ScrollToIndexes, model.ScrollPosition{Top: float64(x)}, nil)
	require.NoError(t, err)

	return int(got.Top)
}

func stageIDs(pipe *pipeline.Pipeline) []string {
	stages := pipeline.Stages(pipe, pipeline.ScrollToIndexes)
	ids := make([]string, len(stages))
	for i, s := range stages {
		ids[i] = s.ID
	}

	return ids
}

func double(x int) int { return x * 2 }
func addOne(x int) int { return x + 1 }
func square(x int) int { return x * x }
