package formats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/xuri/excelize/v2"
)

// ErrEmptyTable is returned when a table file has no header row.
var ErrEmptyTable = errors.New("formats: table has no header row")

// Table is a header row plus string cells. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable builds a table from records, padding or truncating each to the
// header width.
func NewTable(columns []string, records ...[]string) *Table {
	t := &Table{Columns: slices.Clone(columns)}
	for _, r := range records {
		t.Rows = append(t.Rows, fitRow(r, len(columns)))
	}

	return t
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	idx := slices.Index(t.Columns, name)
	if idx < 0 {
		return nil, false
	}

	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}

	return out, true
}

// Records returns each row keyed by column name.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))

	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			rec[col] = row[i]
		}

		out = append(out, rec)
	}

	return out
}

func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)

	return out
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeCSV parses comma-separated data whose first record is the header.
// A leading UTF-8 byte order mark, as Excel writes, is ignored.
func DecodeCSV(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyTable
	}

	if err != nil {
		return nil, fmt.Errorf("formats: reading csv header: %w", err)
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("formats: reading csv: %w", err)
	}

	return NewTable(header, records...), nil
}

// EncodeCSV writes the header and rows as CSV.
func EncodeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("formats: writing csv header: %w", err)
	}

	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("formats: writing csv: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeXLSX reads the first worksheet; its first row is the header.
func DecodeXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("formats: opening xlsx: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("formats: reading xlsx rows: %w", err)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}

	// GetRows drops trailing empty cells; NewTable pads them back.
	return NewTable(rows[0], rows[1:]...), nil
}

// EncodeXLSX writes the table to a single worksheet named Sheet1. Cells are
// stored as strings so they read back unchanged.
func EncodeXLSX(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"

	write := func(rowIdx int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}

		values := make([]any, len(cells))
		for i, c := range cells {
			values[i] = c
		}

		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := write(1, t.Columns); err != nil {
		return nil, fmt.Errorf("formats: writing xlsx header: %w", err)
	}

	for i, row := range t.Rows {
		if err := write(i+2, row); err != nil {
			return nil, fmt.Errorf("formats: writing xlsx row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("formats: encoding xlsx: %w", err)
	}

	return buf.Bytes(), nil
}
