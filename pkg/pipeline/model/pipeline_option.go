package model

import "time"

// PipelineOption defines the interface for pipeline options.
//
// Hooks run synchronously. OnRegister and OnUnregister run while the registration
// table is locked and must not call back into the pipeline.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error
	// OnRegister runs before a stage is added or replaced. An error rejects the registration.
	OnRegister(stage *StageInfo) error
	// OnUnregister runs after a stage was removed by its disposer.
	OnUnregister(stage *StageInfo) error
	// OnStageOutput runs every time a stage produced a value during a run.
	OnStageOutput(stage *StageInfo, computationDuration time.Duration) error
	// Finish runs when the pipeline is disposed.
	Finish() error
}
