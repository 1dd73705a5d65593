package tabular

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads Excel workbooks via excelize. Only the first sheet is
// ingested; the first row is the header.
type XLSXReader struct{}

// NewXLSXReader creates an XLSXReader.
func NewXLSXReader() *XLSXReader {
	return &XLSXReader{}
}

// Read parses the first sheet of an Excel workbook into a Table.
func (r *XLSXReader) Read(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx reader: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("xlsx reader: sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

// SupportedTypes returns the extensions handled by XLSXReader.
func (r *XLSXReader) SupportedTypes() []string {
	return []string{".xlsx", ".xlsm"}
}
