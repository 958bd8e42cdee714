// Package grouping registers the row grouping stages into the pipelines of a grid.
//
// The bundle reads the rows and the grouping model from the state store when the
// pipelines run, so a single registration follows every later state update.
package grouping

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-gridcore/internal/store"
	"github.com/askiada/go-gridcore/pkg/grid/model"
	"github.com/askiada/go-gridcore/pkg/pipeline"
)

const (
	// GroupingColumnField is the field of the column displaying the group of a row.
	GroupingColumnField = "__row_group_by_columns_group__"
	// GroupIDPrefix prefixes the ids of the group nodes.
	GroupIDPrefix = "auto-generated-row-"

	FlatStageID           = "rowGrouping/flat"
	ByColumnsStageID      = "rowGrouping/byColumns"
	GroupingColumnStageID = "rowGrouping/groupingColumn"
	LockColumnStageID     = "rowGrouping/lockGroupingColumn"

	// HeaderNameKey is the locale text key of the grouping column header.
	HeaderNameKey = "groupingColumnHeaderName"
)

var (
	ErrStoreMustBeSet   = errors.New("store must be set")
	ErrGroupIDCollision = errors.New("row id collides with a group id")
)

// Option configures the grouping stages.
type Option func(b *bundle)

// WithHeaderName resolves the header of the grouping column every time the column is added.
func WithHeaderName(fn func() string) Option {
	return func(b *bundle) {
		if fn != nil {
			b.headerName = fn
		}
	}
}

type registration struct {
	replaces bool
	register func() (pipeline.Disposer, error)
}

func newRegistration[V any](p *pipeline.Pipeline, key pipeline.Key[V], id string, fn pipeline.Stage[V]) registration {
	replaces := false
	for _, stage := range pipeline.Stages(p, key) {
		if stage.ID == id {
			replaces = true
			break
		}
	}

	return registration{
		replaces: replaces,
		register: func() (pipeline.Disposer, error) {
			return pipeline.Register(p, key, id, fn)
		},
	}
}

func releaseAll(disposers []pipeline.Disposer) pipeline.Disposer {
	return func() {
		for i := len(disposers) - 1; i >= 0; i-- {
			disposers[i]()
		}
	}
}

// Register installs the grouping stages into p. Registering again replaces the
// stages in place. The returned disposer removes every stage of this registration.
//
// When a registration fails, the stages it added are removed and the stages it
// replaced are kept: the returned disposer then covers the kept stages only.
func Register(p *pipeline.Pipeline, st *store.Store, opts ...Option) (pipeline.Disposer, error) {
	if p == nil {
		return func() {}, pipeline.ErrPipelineMustBeSet
	}
	if st == nil {
		return func() {}, ErrStoreMustBeSet
	}

	b := &bundle{
		st:         st,
		headerName: func() string { return "Group" },
	}
	for _, opt := range opts {
		opt(b)
	}

	regs := []registration{
		newRegistration(p, pipeline.RowTree, FlatStageID, b.flat),
		newRegistration(p, pipeline.RowTree, ByColumnsStageID, b.byColumns),
		newRegistration(p, pipeline.HydrateColumns, GroupingColumnStageID, b.groupingColumn),
		newRegistration(p, pipeline.CanBeReordered, LockColumnStageID, lockGroupingColumn),
	}

	var added, kept []pipeline.Disposer
	for _, reg := range regs {
		dispose, err := reg.register()
		if err != nil {
			releaseAll(added)()
			return releaseAll(kept), errors.Wrap(err, "unable to register row grouping")
		}
		if reg.replaces {
			kept = append(kept, dispose)
		} else {
			added = append(added, dispose)
		}
	}

	return releaseAll(append(added, kept...)), nil
}

type bundle struct {
	st         *store.Store
	headerName func() string
}

// flat builds a tree with one root per row when no earlier stage built one.
func (b *bundle) flat(_ context.Context, tree model.RowTree, _ pipeline.Params) (model.RowTree, error) {
	if !tree.IsEmpty() {
		return tree, nil
	}

	ids := b.st.Get().Rows.IDs
	res := model.RowTree{
		Nodes: make(map[model.RowID]*model.TreeNode, len(ids)),
		Roots: make([]model.RowID, 0, len(ids)),
	}
	for _, id := range ids {
		res.Nodes[id] = &model.TreeNode{ID: id}
		res.Roots = append(res.Roots, id)
	}
	if len(ids) > 0 {
		res.Depth = 1
	}

	return res, nil
}

// segmentEscaper keeps "-" and "/" out of fields and keys so that they can separate them.
var segmentEscaper = strings.NewReplacer("%", "%25", "-", "%2D", "/", "%2F")

// groupPath returns the path of a group, "field/key" segments joined with "-" from the root.
func groupPath(parentPath, field, key string) string {
	segment := segmentEscaper.Replace(field) + "/" + segmentEscaper.Replace(key)
	if parentPath == "" {
		return segment
	}

	return parentPath + "-" + segment
}

type groupLevel struct {
	node *model.TreeNode
	path string
	rows []model.RowID
}

// byColumns nests the leaves of the tree under one group node per distinct value of
// every field of the grouping model, in the order the values first appear.
func (b *bundle) byColumns(ctx context.Context, tree model.RowTree, _ pipeline.Params) (model.RowTree, error) {
	state := b.st.Get()
	fields := state.RowGrouping.Model
	if len(fields) == 0 || tree.IsEmpty() {
		return tree, nil
	}

	leaves := make([]model.RowID, 0, len(tree.Nodes))
	isLeaf := make(map[model.RowID]struct{}, len(tree.Nodes))
	for _, id := range tree.Flatten() {
		if node, ok := tree.Nodes[id]; ok && !node.IsGroup {
			leaves = append(leaves, id)
			isLeaf[id] = struct{}{}
		}
	}

	res := model.RowTree{
		Nodes: make(map[model.RowID]*model.TreeNode, len(leaves)),
		Depth: len(fields) + 1,
	}

	var build func(parent *groupLevel, rows []model.RowID, depth int) ([]model.RowID, error)
	build = func(parent *groupLevel, rows []model.RowID, depth int) ([]model.RowID, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		parentID, parentPath := "", ""
		if parent != nil {
			parentID, parentPath = parent.node.ID, parent.path
		}

		if depth == len(fields) {
			for _, id := range rows {
				res.Nodes[id] = &model.TreeNode{ID: id, Parent: parentID, Depth: depth}
			}
			return rows, nil
		}

		field := fields[depth]
		var levels []*groupLevel
		byKey := make(map[string]*groupLevel)
		for _, id := range rows {
			key := groupingKey(state.Rows.Lookup[id], field)
			lvl, ok := byKey[key]
			if !ok {
				path := groupPath(parentPath, field, key)
				groupID := GroupIDPrefix + path
				if _, ok := isLeaf[groupID]; ok {
					return nil, errors.Wrapf(ErrGroupIDCollision, "%q", groupID)
				}
				lvl = &groupLevel{
					path: path,
					node: &model.TreeNode{
						ID:            groupID,
						Parent:        parentID,
						Depth:         depth,
						IsGroup:       true,
						GroupingField: field,
						GroupingKey:   key,
					},
				}
				byKey[key] = lvl
				levels = append(levels, lvl)
			}
			lvl.rows = append(lvl.rows, id)
		}

		ids := make([]model.RowID, 0, len(levels))
		for _, lvl := range levels {
			children, err := build(lvl, lvl.rows, depth+1)
			if err != nil {
				return nil, err
			}
			lvl.node.Children = children
			res.Nodes[lvl.node.ID] = lvl.node
			ids = append(ids, lvl.node.ID)
		}

		return ids, nil
	}

	roots, err := build(nil, leaves, 0)
	if err != nil {
		return model.RowTree{}, err
	}
	res.Roots = roots

	return res, nil
}

func groupingKey(row model.Row, field string) string {
	v, ok := row[field]
	if !ok || v == nil {
		return ""
	}

	return fmt.Sprint(v)
}

// groupingColumn prepends the grouping column while rows are grouped.
func (b *bundle) groupingColumn(_ context.Context, cols model.ColumnsState, _ pipeline.Params) (model.ColumnsState, error) {
	if len(b.st.Get().RowGrouping.Model) == 0 {
		return cols, nil
	}
	if _, ok := cols.Lookup[GroupingColumnField]; ok {
		return cols, nil
	}

	res := model.ColumnsState{
		All:    make([]string, 0, len(cols.All)+1),
		Lookup: make(map[string]model.ColDef, len(cols.Lookup)+1),
	}
	res.All = append(res.All, GroupingColumnField)
	res.All = append(res.All, cols.All...)
	for field, def := range cols.Lookup {
		res.Lookup[field] = def
	}
	res.Lookup[GroupingColumnField] = model.ColDef{
		Field:      GroupingColumnField,
		HeaderName: b.headerName(),
		Type:       "string",
		Width:      200,
	}

	return res, nil
}

func lockGroupingColumn(_ context.Context, canBeReordered bool, params pipeline.Params) (bool, error) {
	if field, _ := params["field"].(string); field == GroupingColumnField {
		return false, nil
	}

	return canBeReordered, nil
}
