package measure

import (
	"time"

	"github.com/askiada/go-gridcore/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
}

func (pm *pipelineMeasure) New() error {
	return nil
}

// OnRegister starts a fresh metric, a replaced stage does not inherit the timings of the previous function.
func (pm *pipelineMeasure) OnRegister(stage *model.StageInfo) error {
	if stage.Replaced {
		pm.RemoveMetric(stage.FullName())
	}
	pm.AddMetric(stage.FullName())

	return nil
}

func (pm *pipelineMeasure) OnUnregister(stage *model.StageInfo) error {
	pm.RemoveMetric(stage.FullName())

	return nil
}

func (pm *pipelineMeasure) OnStageOutput(stage *model.StageInfo, computationDuration time.Duration) error {
	// the stage may have been removed while it was running
	if mt := pm.GetMetric(stage.FullName()); mt != nil {
		mt.AddDuration(computationDuration)
	}

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	return nil
}

// PipelineMeasure records the computation time of every stage into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{measure}
}
