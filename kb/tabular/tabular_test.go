package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestForPath(t *testing.T) {
	t.Parallel()

	r, err := ForPath("data.csv")
	require.NoError(t, err)
	assert.IsType(t, &CSVReader{}, r)

	r, err = ForPath("data.XLSX")
	require.NoError(t, err)
	assert.IsType(t, &XLSXReader{}, r)

	_, err = ForPath("data.pdf")
	require.Error(t, err)
}

func TestCSVReader_HeaderAndRows(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,industry\nA,chips\nB,steel\n"), 0o644))

	table, err := NewCSVReader().Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "industry"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"A", "chips"}, table.Rows[0])
}

func TestCSVReader_RaggedRowsTolerated(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "ragged.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2\n1,2,3,4\n"), 0o644))

	table, err := NewCSVReader().Read(path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestCSVReader_HeaderOnly(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,industry\n"), 0o644))

	table, err := NewCSVReader().Read(path)
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestCSVReader_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewCSVReader().Read(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestXLSXReader_FirstSheet(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"name", "industry"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"A", "chips"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"B", "steel"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := NewXLSXReader().Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "industry"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"B", "steel"}, table.Rows[1])
}

func TestXLSXReader_NotAWorkbook(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	_, err := NewXLSXReader().Read(path)
	require.Error(t, err)
}
