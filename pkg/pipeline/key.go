package pipeline

import (
	"reflect"
	"sort"

	gridmodel "github.com/askiada/go-gridcore/pkg/grid/model"
)

// Name is the name of a pipeline.
type Name string

// Key identifies a pipeline and fixes the type V of its accumulator.
// Keys can only be declared by this package.
type Key[V any] struct {
	name Name
}

// Name returns the pipeline name.
func (k Key[V]) Name() Name {
	return k.name
}

func (k Key[V]) String() string {
	return string(k.name)
}

// catalog maps every declared pipeline name to its accumulator type.
var catalog = map[Name]reflect.Type{}

func declare[V any](name Name) Key[V] {
	if _, ok := catalog[name]; ok {
		panic("pipeline: duplicate declaration of " + string(name))
	}
	catalog[name] = reflect.TypeFor[V]()

	return Key[V]{name: name}
}

var (
	// HydrateColumns lets features add, remove or alter columns before they are stored.
	HydrateColumns = declare[gridmodel.ColumnsState]("hydrateColumns")
	// RowTree builds the tree of rows (flat list or groups) from the row ids.
	RowTree = declare[gridmodel.RowTree]("rowTree")
	// ExportMenu populates the export menu.
	ExportMenu = declare[[]gridmodel.ExportMenuItem]("exportMenu")
	// ScrollToIndexes computes the scroll position for the "rowIndex" and "colIndex" params.
	ScrollToIndexes = declare[gridmodel.ScrollPosition]("scrollToIndexes")
	// CanBeReordered decides whether the column named by the "field" param can be moved.
	CanBeReordered = declare[bool]("canBeReordered")
)

// Names returns the declared pipeline names, sorted.
func Names() []Name {
	res := make([]Name, 0, len(catalog))
	for name := range catalog {
		res = append(res, name)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i] < res[j]
	})

	return res
}

func checkKey[V any](key Key[V]) error {
	typ, ok := catalog[key.name]
	if !ok {
		return ErrUnknownPipeline
	}
	if typ != reflect.TypeFor[V]() {
		return ErrAccumulatorType
	}

	return nil
}
