package model

// ColDef is a column definition.
type ColDef struct {
	Field      string `mapstructure:"field" yaml:"field"`
	HeaderName string `mapstructure:"header_name" yaml:"headerName,omitempty"`
	Type       string `mapstructure:"type" yaml:"type,omitempty"`
	Width      int    `mapstructure:"width" yaml:"width,omitempty"`
	Hide       bool   `mapstructure:"hide" yaml:"hide,omitempty"`
	Groupable  bool   `mapstructure:"groupable" yaml:"groupable,omitempty"`
}

// ColumnsState is the accumulator of the hydrateColumns pipeline.
type ColumnsState struct {
	All    []string          `yaml:"all"`
	Lookup map[string]ColDef `yaml:"lookup"`
}

// NewColumnsState indexes the given definitions in order.
func NewColumnsState(defs []ColDef) ColumnsState {
	cs := ColumnsState{
		All:    make([]string, 0, len(defs)),
		Lookup: make(map[string]ColDef, len(defs)),
	}
	for _, def := range defs {
		if _, ok := cs.Lookup[def.Field]; !ok {
			cs.All = append(cs.All, def.Field)
		}
		cs.Lookup[def.Field] = def
	}

	return cs
}

// Visible returns the fields of the columns that are not hidden.
func (cs ColumnsState) Visible() []string {
	res := make([]string, 0, len(cs.All))
	for _, field := range cs.All {
		if !cs.Lookup[field].Hide {
			res = append(res, field)
		}
	}

	return res
}

// ScrollPosition is the accumulator of the scrollToIndexes pipeline.
type ScrollPosition struct {
	Top  float64 `yaml:"top"`
	Left float64 `yaml:"left"`
}
