package model

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrUnknownExportFormat = errors.New("unknown export format")

// ExportFormat is an available export format.
type ExportFormat string

const (
	ExportFormatCSV   ExportFormat = "csv"
	ExportFormatPrint ExportFormat = "print"
)

// ParseExportFormat parses a format name.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(s)) {
	case ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPrint:
		return ExportFormatPrint, nil
	default:
		return "", errors.Wrapf(ErrUnknownExportFormat, "%q", s)
	}
}

// ExportOptions are the options applicable to any export format.
type ExportOptions struct {
	// Fields restricts the exported columns.
	Fields []string
	// AllColumns also exports hidden columns.
	AllColumns bool
}

// CsvGetRowsToExportParams is handed to CsvExportOptions.GetRowsToExport.
type CsvGetRowsToExportParams struct {
	Rows []RowID
	Tree RowTree
}

// CsvExportOptions are read once by the CSV exporter.
type CsvExportOptions struct {
	ExportOptions
	// Delimiter separates fields. Defaults to ",".
	Delimiter string
	// FileName is the name of the produced file.
	FileName string
	// UTF8WithBOM prefixes the file with the UTF-8 byte order mark.
	UTF8WithBOM bool
	// IncludeHeaders adds the column headers as first line. Defaults to true.
	IncludeHeaders *bool
	// GetRowsToExport returns the ids of the rows to export in export order.
	GetRowsToExport func(params CsvGetRowsToExportParams) []RowID
}

// Defaulted returns a copy with the documented defaults applied.
func (o CsvExportOptions) Defaulted() CsvExportOptions {
	if o.Delimiter == "" {
		o.Delimiter = ","
	}
	if o.IncludeHeaders == nil {
		o.IncludeHeaders = boolPtr(true)
	}

	return o
}

// PrintExportOptions are read once by the print exporter.
type PrintExportOptions struct {
	ExportOptions
	// FileName is used as the print window title.
	FileName    string
	HideToolbar bool
	HideFooter  bool
	// CopyStyles copies the page styles to the print window. Defaults to true.
	CopyStyles    *bool
	BodyClassName string
	PageStyle     string
}

// Defaulted returns a copy with the documented defaults applied.
func (o PrintExportOptions) Defaulted() PrintExportOptions {
	if o.CopyStyles == nil {
		o.CopyStyles = boolPtr(true)
	}

	return o
}

// ExportMenuItem is one entry of the export menu, populated by the exportMenu pipeline.
type ExportMenuItem struct {
	Format ExportFormat `yaml:"format"`
	// LabelKey is a locale text key.
	LabelKey string `yaml:"labelKey"`
}

func boolPtr(b bool) *bool {
	return &b
}
