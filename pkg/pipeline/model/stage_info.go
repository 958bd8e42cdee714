package model

// StageInfo describes one entry of a registration table.
type StageInfo struct {
	// Pipeline is the name of the pipeline the stage belongs to.
	Pipeline string
	// ID is unique within the pipeline.
	ID string
	// Position is the index of the stage in run order.
	Position int
	// Replaced is set when the registration replaced an existing stage with the same ID.
	Replaced bool
}

// FullName returns "pipeline/id".
func (s *StageInfo) FullName() string {
	return s.Pipeline + "/" + s.ID
}

// TableInfo describes the registration table of one pipeline.
type TableInfo struct {
	Name   string
	Stages []StageInfo
}

var (
	// StartStage and EndStage delimit every table when it is drawn.
	StartStage = &StageInfo{ID: "start"}
	EndStage   = &StageInfo{ID: "end"}
)
