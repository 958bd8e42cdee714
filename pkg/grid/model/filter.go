package model

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrUnknownLinkOperator = errors.New("unknown link operator")

// FilterItem is a single filter condition.
type FilterItem struct {
	// ID must be unique when the model holds several items. It is either an int or a string.
	ID any `mapstructure:"id" yaml:"id,omitempty"`
	// ColumnField is the column from which the rows are filtered.
	ColumnField string `mapstructure:"column_field" yaml:"columnField"`
	// Value is compared to the row values by the operator filtering function.
	Value any `mapstructure:"value" yaml:"value,omitempty"`
	// OperatorValue is the name of the operator to apply.
	OperatorValue string `mapstructure:"operator_value" yaml:"operatorValue,omitempty"`
}

// LinkOperator combines several filter items.
type LinkOperator string

const (
	And LinkOperator = "and"
	Or  LinkOperator = "or"
)

func (l LinkOperator) String() string {
	return string(l)
}

// ParseLinkOperator parses a link operator, the empty string defaults to And.
func ParseLinkOperator(s string) (LinkOperator, error) {
	switch LinkOperator(strings.ToLower(strings.TrimSpace(s))) {
	case And, "":
		return And, nil
	case Or:
		return Or, nil
	default:
		return "", errors.Wrapf(ErrUnknownLinkOperator, "%q", s)
	}
}

// FilterModel is replaced wholesale on every update.
type FilterModel struct {
	Items        []FilterItem `mapstructure:"items" yaml:"items"`
	LinkOperator LinkOperator `mapstructure:"link_operator" yaml:"linkOperator"`
}

// Clone returns a copy of the model that does not share the items slice.
func (m FilterModel) Clone() FilterModel {
	items := make([]FilterItem, len(m.Items))
	copy(items, m.Items)

	return FilterModel{Items: items, LinkOperator: m.LinkOperator}
}
