// Package scroll registers the stage computing the scroll position of a cell.
package scroll

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-gridcore/internal/store"
	"github.com/askiada/go-gridcore/pkg/grid/model"
	"github.com/askiada/go-gridcore/pkg/pipeline"
)

const (
	ToIndexesStageID = "scroll/toIndexes"

	RowIndexParam = "rowIndex"
	ColIndexParam = "colIndex"

	// DefaultRowHeight applies when the state does not set a row height.
	DefaultRowHeight = 52
	// DefaultColumnWidth applies to columns without a width.
	DefaultColumnWidth = 100
)

var (
	ErrStoreMustBeSet  = errors.New("store must be set")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidIndex    = errors.New("index must be an integer")
)

// Register installs the toIndexes stage into the scrollToIndexes pipeline of p.
func Register(p *pipeline.Pipeline, st *store.Store) (pipeline.Disposer, error) {
	if p == nil {
		return func() {}, pipeline.ErrPipelineMustBeSet
	}
	if st == nil {
		return func() {}, ErrStoreMustBeSet
	}

	return pipeline.Register(p, pipeline.ScrollToIndexes, ToIndexesStageID, toIndexes(st))
}

// toIndexes sets Top from the row index and Left from the widths of the visible
// columns before the column index. An axis without an index param is left unchanged.
func toIndexes(st *store.Store) pipeline.Stage[model.ScrollPosition] {
	return func(_ context.Context, pos model.ScrollPosition, params pipeline.Params) (model.ScrollPosition, error) {
		state := st.Get()

		row, ok, err := index(params, RowIndexParam)
		if err != nil {
			return pos, err
		}
		if ok {
			if row < 0 || row >= len(state.Rows.IDs) {
				return pos, errors.Wrapf(ErrIndexOutOfRange, "row %d of %d", row, len(state.Rows.IDs))
			}
			height := state.RowHeight
			if height <= 0 {
				height = DefaultRowHeight
			}
			pos.Top = float64(row * height)
		}

		col, ok, err := index(params, ColIndexParam)
		if err != nil {
			return pos, err
		}
		if ok {
			visible := state.Columns.Visible()
			if col < 0 || col >= len(visible) {
				return pos, errors.Wrapf(ErrIndexOutOfRange, "column %d of %d", col, len(visible))
			}
			left := 0
			for _, field := range visible[:col] {
				left += width(state.Columns.Lookup[field])
			}
			pos.Left = float64(left)
		}

		return pos, nil
	}
}

func width(def model.ColDef) int {
	if def.Width <= 0 {
		return DefaultColumnWidth
	}

	return def.Width
}

// index reads an integer param. Decoded configs and YAML carry numbers as float64.
func index(params pipeline.Params, key string) (int, bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, false, nil
	}

	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != float64(int(v)) {
			return 0, false, errors.Wrapf(ErrInvalidIndex, "%s: %v", key, v)
		}
		return int(v), true, nil
	default:
		return 0, false, errors.Wrapf(ErrInvalidIndex, "%s: %T", key, raw)
	}
}
