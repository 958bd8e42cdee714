package grid

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyInitialized = errors.New("handle is already initialized with another config")
	ErrHandleDisposed     = errors.New("handle is disposed")
	ErrNotInitialized     = errors.New("handle is not initialized")
)

// Step is a bootstrap step.
type Step string

const (
	StepHandle      Step = "handle"
	StepDiagnostics Step = "diagnostics"
	StepState       Step = "state"
	StepPipeline    Step = "pipeline"
	StepGrouping    Step = "grouping"
	StepLocale      Step = "locale"
)

// Steps returns the bootstrap steps in execution order.
func Steps() []Step {
	return []Step{StepHandle, StepDiagnostics, StepState, StepPipeline, StepGrouping, StepLocale}
}

// BootstrapError is returned by Initialize when a step failed.
type BootstrapError struct {
	Step Step
	Err  error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap step %s: %v", e.Step, e.Err)
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}
