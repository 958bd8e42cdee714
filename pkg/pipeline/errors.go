package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet = errors.New("pipeline must be set")
	ErrStageMustBeSet    = errors.New("stage must be set")
	ErrUnknownPipeline   = errors.New("unknown pipeline")
	ErrAccumulatorType   = errors.New("accumulator type does not match the pipeline")
	ErrInvalidStageID    = errors.New("invalid stage id")
	ErrDisposed          = errors.New("pipeline is disposed")
	ErrStagePanicked     = errors.New("stage panicked")
)

// StageError is returned by a run when a stage failed.
type StageError struct {
	Pipeline Name
	StageID  string
	Position int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s/%s (position %d): %v", e.Pipeline, e.StageID, e.Position, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Reporter receives the registration and teardown errors of a pipeline.
// Stage errors are not reported, they are returned to the caller of the run.
type Reporter interface {
	Report(op string, err error)
}

type nopReporter struct{}

func (nopReporter) Report(string, error) {}
