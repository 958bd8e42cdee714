package drawer

import (
	"github.com/askiada/go-gridcore/pkg/pipeline/measure"
)

// Drawer is an interface that defines the methods for drawing registration tables.
type Drawer interface {
	// AddStage adds a vertex to the drawing.
	AddStage(name string) error
	// AddLink adds a link between two consecutive stages.
	AddLink(parentStageName, childStageName string) error
	// AddMeasure labels and colours the stages with their average computation time.
	AddMeasure(measure measure.Measure) error
	// Draw writes the drawing.
	Draw() error
}
