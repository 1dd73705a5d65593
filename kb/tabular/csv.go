package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVReader reads comma-separated files. The first row is the header.
type CSVReader struct {
	delimiter rune
}

// NewCSVReader creates a CSVReader with the default ',' delimiter.
func NewCSVReader() *CSVReader {
	return &CSVReader{delimiter: ','}
}

// Read parses a CSV file into a Table.
func (r *CSVReader) Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv reader: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = r.delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv reader: parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// SupportedTypes returns the extensions handled by CSVReader.
func (r *CSVReader) SupportedTypes() []string {
	return []string{".csv"}
}
