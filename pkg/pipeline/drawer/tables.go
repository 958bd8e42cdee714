package drawer

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-gridcore/pkg/pipeline/measure"
	"github.com/askiada/go-gridcore/pkg/pipeline/model"
)

// DrawTables draws every table as a chain "name/start" -> stages -> "name/end".
// When msr is not nil the stages are labelled with their average computation time.
func DrawTables(d Drawer, tables []model.TableInfo, msr measure.Measure) error {
	for _, table := range tables {
		start := table.Name + "/" + model.StartStage.ID
		end := table.Name + "/" + model.EndStage.ID

		if err := d.AddStage(start); err != nil {
			return errors.Wrapf(err, "unable to add start of %s", table.Name)
		}

		parent := start
		for i := range table.Stages {
			name := table.Stages[i].FullName()
			if err := d.AddStage(name); err != nil {
				return err
			}
			if err := d.AddLink(parent, name); err != nil {
				return err
			}
			parent = name
		}

		if err := d.AddStage(end); err != nil {
			return errors.Wrapf(err, "unable to add end of %s", table.Name)
		}
		if err := d.AddLink(parent, end); err != nil {
			return err
		}
	}

	if msr != nil {
		if err := d.AddMeasure(msr); err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	return d.Draw()
}
