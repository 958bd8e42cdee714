package scroll_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-gridcore/internal/store"
	"github.com/askiada/go-gridcore/pkg/grid/model"
	"github.com/askiada/go-gridcore/pkg/grid/scroll"
	"github.com/askiada/go-gridcore/pkg/pipeline"
)

func setup(t *testing.T, rowHeight int) *pipeline.Pipeline {
	t.Helper()

	st := store.New(store.State{
		Rows: store.RowsState{IDs: []model.RowID{"1", "2", "3", "4"}},
		Columns: model.NewColumnsState([]model.ColDef{
			{Field: "id", Width: 60},
			{Field: "secret", Width: 500, Hide: true},
			{Field: "name"},
			{Field: "team", Width: 150},
		}),
		RowHeight: rowHeight,
	})
	pipe, err := pipeline.New()
	require.NoError(t, err)

	dispose, err := scroll.Register(pipe, st)
	require.NoError(t, err)
	t.Cleanup(dispose)

	return pipe
}

func TestToIndexes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		rowHeight int
		initial   model.ScrollPosition
		params    pipeline.Params
		want      model.ScrollPosition
		wantErr   error
	}{
		{
			name:   "first cell",
			params: pipeline.Params{scroll.RowIndexParam: 0, scroll.ColIndexParam: 0},
			want:   model.ScrollPosition{},
		},
		{
			name:   "default row height and widths",
			params: pipeline.Params{scroll.RowIndexParam: 3, scroll.ColIndexParam: 2},
			want:   model.ScrollPosition{Top: 156, Left: 160},
		},
		{
			name:      "configured row height",
			rowHeight: 20,
			params:    pipeline.Params{scroll.RowIndexParam: 2, scroll.ColIndexParam: 1},
			want:      model.ScrollPosition{Top: 40, Left: 60},
		},
		{
			name:    "float indexes",
			params:  pipeline.Params{scroll.RowIndexParam: 1.0, scroll.ColIndexParam: int64(2)},
			want:    model.ScrollPosition{Top: 52, Left: 160},
			initial: model.ScrollPosition{Top: 7, Left: 7},
		},
		{
			name:    "missing column keeps left",
			params:  pipeline.Params{scroll.RowIndexParam: 1},
			initial: model.ScrollPosition{Left: 42},
			want:    model.ScrollPosition{Top: 52, Left: 42},
		},
		{
			name:    "nil params keep position",
			initial: model.ScrollPosition{Top: 1, Left: 2},
			want:    model.ScrollPosition{Top: 1, Left: 2},
		},
		{
			name:    "row out of range",
			params:  pipeline.Params{scroll.RowIndexParam: 4},
			wantErr: scroll.ErrIndexOutOfRange,
		},
		{
			name:    "negative column",
			params:  pipeline.Params{scroll.ColIndexParam: -1},
			wantErr: scroll.ErrIndexOutOfRange,
		},
		{
			name:    "hidden columns are not indexed",
			params:  pipeline.Params{scroll.ColIndexParam: 3},
			wantErr: scroll.ErrIndexOutOfRange,
		},
		{
			name:    "fractional index",
			params:  pipeline.Params{scroll.RowIndexParam: 1.5},
			wantErr: scroll.ErrInvalidIndex,
		},
		{
			name:    "string index",
			params:  pipeline.Params{scroll.ColIndexParam: "1"},
			wantErr: scroll.ErrInvalidIndex,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pipe := setup(t, tt.rowHeight)
			got, err := pipeline.Run(context.Background(), pipe, pipeline.ScrollToIndexes, tt.initial, tt.params)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New()
	require.NoError(t, err)

	dispose, err := scroll.Register(nil, store.New(store.State{}))
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
	dispose()

	dispose, err = scroll.Register(pipe, nil)
	require.ErrorIs(t, err, scroll.ErrStoreMustBeSet)
	dispose()

	dispose, err = scroll.Register(pipe, store.New(store.State{}))
	require.NoError(t, err)
	stages := pipeline.Stages(pipe, pipeline.ScrollToIndexes)
	require.Len(t, stages, 1)
	assert.Equal(t, scroll.ToIndexesStageID, stages[0].ID)

	dispose()
	assert.Empty(t, pipeline.Stages(pipe, pipeline.ScrollToIndexes))
}
