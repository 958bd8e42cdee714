package model

import "fmt"

// RowID identifies a row.
type RowID = string

// Row is a row model, keyed by field.
type Row map[string]any

// ID returns the "id" field of the row formatted as a RowID.
func (r Row) ID() (RowID, bool) {
	v, ok := r["id"]
	if !ok || v == nil {
		return "", false
	}

	return fmt.Sprint(v), true
}

// TreeNode is a node of the row tree. Group nodes are created by grouping stages.
type TreeNode struct {
	ID            RowID   `yaml:"id"`
	Parent        RowID   `yaml:"parent,omitempty"`
	Children      []RowID `yaml:"children,omitempty"`
	Depth         int     `yaml:"depth"`
	IsGroup       bool    `yaml:"isGroup,omitempty"`
	GroupingField string  `yaml:"groupingField,omitempty"`
	GroupingKey   string  `yaml:"groupingKey,omitempty"`
}

// RowTree is the accumulator of the rowTree pipeline.
type RowTree struct {
	Nodes map[RowID]*TreeNode `yaml:"nodes"`
	Roots []RowID             `yaml:"roots"`
	// Depth is the maximum depth of the tree.
	Depth int `yaml:"depth"`
}

// IsEmpty reports whether the tree holds no node.
func (t RowTree) IsEmpty() bool {
	return len(t.Nodes) == 0
}

// Flatten walks the tree depth first and returns the ids in display order.
func (t RowTree) Flatten() []RowID {
	res := make([]RowID, 0, len(t.Nodes))
	var walk func(ids []RowID)
	walk = func(ids []RowID) {
		for _, id := range ids {
			res = append(res, id)
			if node, ok := t.Nodes[id]; ok {
				walk(node.Children)
			}
		}
	}
	walk(t.Roots)

	return res
}
