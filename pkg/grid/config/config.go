// Package config loads the processed configuration the grid is bootstrapped from.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/askiada/go-gridcore/pkg/grid/model"
)

const envPrefix = "GRID"

var (
	ErrColumnFieldMustBeSet = errors.New("column field must be set")
	ErrDuplicateColumn      = errors.New("duplicate column field")
	ErrRowIDMustBeSet       = errors.New("row id must be set")
	ErrDuplicateRowID       = errors.New("duplicate row id")
	ErrUnknownGroupingField = errors.New("grouping field does not reference a column")
	ErrInvalidRowHeight     = errors.New("row height must not be negative")
)

// Config is the processed configuration of a grid instance.
type Config struct {
	// Locale is a BCP 47 tag selecting the locale text.
	Locale string `mapstructure:"locale"`
	// LocaleText overrides individual locale strings.
	LocaleText map[string]string `mapstructure:"locale_text"`
	LogLevel   string            `mapstructure:"log_level"`
	// RowHeight is the height of a row in pixels. Zero selects the default.
	RowHeight int `mapstructure:"row_height"`
	// Debug switches to a development logger with stack traces on reports.
	Debug            bool              `mapstructure:"debug"`
	Columns          []model.ColDef    `mapstructure:"columns"`
	Rows             []model.Row       `mapstructure:"rows"`
	RowGroupingModel []string          `mapstructure:"row_grouping_model"`
	FilterModel      model.FilterModel `mapstructure:"filter_model"`
}

// Default returns the configuration used when nothing is provided.
func Default() *Config {
	return &Config{
		Locale:    "en-US",
		LogLevel:  "info",
		RowHeight: 52,
	}
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("locale", def.Locale)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("row_height", def.RowHeight)
}

// Load reads the configuration file at path, if any, and applies env overrides
// prefixed with GRID_ (e.g. GRID_LOCALE, GRID_LOG_LEVEL).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "unable to read config %s", path)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the structural invariants the pipelines rely on.
// Filter operators are checked by the filtering feature, not here.
func (c *Config) Validate() error {
	if c.RowHeight < 0 {
		return errors.Wrapf(ErrInvalidRowHeight, "%d", c.RowHeight)
	}

	fields := make(map[string]struct{}, len(c.Columns))
	for i, col := range c.Columns {
		if strings.TrimSpace(col.Field) == "" {
			return errors.Wrapf(ErrColumnFieldMustBeSet, "column %d", i)
		}
		if _, ok := fields[col.Field]; ok {
			return errors.Wrapf(ErrDuplicateColumn, "%q", col.Field)
		}
		fields[col.Field] = struct{}{}
	}

	ids := make(map[model.RowID]struct{}, len(c.Rows))
	for i, row := range c.Rows {
		id, ok := row.ID()
		if !ok {
			return errors.Wrapf(ErrRowIDMustBeSet, "row %d", i)
		}
		if _, ok := ids[id]; ok {
			return errors.Wrapf(ErrDuplicateRowID, "%q", id)
		}
		ids[id] = struct{}{}
	}

	for _, field := range c.RowGroupingModel {
		if _, ok := fields[field]; !ok {
			return errors.Wrapf(ErrUnknownGroupingField, "%q", field)
		}
	}

	return nil
}

// RowIDs returns the ids of the configured rows in order.
func (c *Config) RowIDs() []model.RowID {
	ids := make([]model.RowID, 0, len(c.Rows))
	for _, row := range c.Rows {
		if id, ok := row.ID(); ok {
			ids = append(ids, id)
		}
	}

	return ids
}
