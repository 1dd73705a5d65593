// Package tabular reads spreadsheet-like sources into header + rows.
// The first row of a sheet is always treated as the header.
package tabular

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Table is the normalized content of one tabular source.
type Table struct {
	Header []string
	Rows   [][]string
}

// Reader parses one file format into a Table.
type Reader interface {
	// Read parses the file at path. An empty table (no data rows) is valid.
	Read(path string) (*Table, error)
	// SupportedTypes returns the extensions handled by this reader.
	SupportedTypes() []string
}

// ForPath returns the reader matching the file extension, or an error for
// unsupported formats.
func ForPath(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return NewXLSXReader(), nil
	case ".csv":
		return NewCSVReader(), nil
	default:
		return nil, fmt.Errorf("tabular: unsupported file type %q", filepath.Ext(path))
	}
}
