package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-gridcore/pkg/grid"
	"github.com/askiada/go-gridcore/pkg/grid/model"
	"github.com/askiada/go-gridcore/pkg/pipeline"
)

var exportLabelKeys = map[model.ExportFormat]string{
	model.ExportFormatCSV:   "toolbarExportCSV",
	model.ExportFormatPrint: "toolbarExportPrint",
}

// registerExportMenu adds one exportMenu stage per format, in the given order.
func registerExportMenu(h *grid.Handle, formats []string) error {
	for _, name := range formats {
		format, err := model.ParseExportFormat(name)
		if err != nil {
			return err
		}

		item := model.ExportMenuItem{Format: format, LabelKey: exportLabelKeys[format]}
		_, err = pipeline.Register(h.Pipeline, pipeline.ExportMenu, "export/"+string(format),
			func(_ context.Context, menu []model.ExportMenuItem, _ pipeline.Params) ([]model.ExportMenuItem, error) {
				res := make([]model.ExportMenuItem, 0, len(menu)+1)
				res = append(res, menu...)

				return append(res, item), nil
			})
		if err != nil {
			return errors.Wrapf(err, "unable to register %s export", format)
		}
	}

	return nil
}
