// Package upload explores an arbitrary user-supplied CSV: shape, preview,
// per-column statistics and ad-hoc chart datasets.
package upload

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// PreviewRows is the number of leading rows shown in a preview.
const PreviewRows = 100

var (
	ErrEmpty         = errors.New("uploaded file has no columns")
	ErrUnknownColumn = errors.New("unknown column")
)

// Dataset is a parsed upload. It is immutable after Parse.
type Dataset struct {
	Name string
	df   dataframe.DataFrame
}

// Parse reads a CSV with a header row. Column types are detected from the
// values.
func Parse(r io.Reader, name string) (*Dataset, error) {
	df := dataframe.ReadCSV(r, dataframe.DetectTypes(true), dataframe.HasHeader(true))
	if df.Err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, df.Err)
	}
	if df.Ncol() == 0 {
		return nil, ErrEmpty
	}
	return &Dataset{Name: name, df: df}, nil
}

// Frame returns the parsed frame.
func (d *Dataset) Frame() dataframe.DataFrame {
	return d.df
}

// Shape returns rows and columns.
func (d *Dataset) Shape() (rows, cols int) {
	return d.df.Nrow(), d.df.Ncol()
}

// Columns returns every column name in file order.
func (d *Dataset) Columns() []string {
	return d.df.Names()
}

// NumericColumns returns the names of int and float columns.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, name := range d.df.Names() {
		if isNumeric(d.df.Col(name)) {
			out = append(out, name)
		}
	}
	return out
}

// Table is a rectangular block of cells. Nulls are nil.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Preview returns the first PreviewRows rows.
func (d *Dataset) Preview() Table {
	n := d.df.Nrow()
	if n > PreviewRows {
		n = PreviewRows
	}
	t := Table{Columns: d.df.Names(), Rows: make([][]any, n)}
	cols := make([][]any, d.df.Ncol())
	for j, name := range t.Columns {
		cols[j] = values(d.df.Col(name))
	}
	for i := 0; i < n; i++ {
		row := make([]any, len(cols))
		for j := range cols {
			row[j] = cols[j][i]
		}
		t.Rows[i] = row
	}
	return t
}

// Describe returns the frame statistics with one row per column and one
// column per statistic.
func (d *Dataset) Describe() Table {
	recs := d.df.Describe().Records()
	if len(recs) == 0 {
		return Table{}
	}
	// recs[0] is the header: the label column, then each data column.
	t := Table{Columns: []string{"column"}}
	for _, r := range recs[1:] {
		t.Columns = append(t.Columns, r[0])
	}
	for j := 1; j < len(recs[0]); j++ {
		row := []any{recs[0][j]}
		for _, r := range recs[1:] {
			row = append(row, cell(r[j]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WriteCSV writes the dataset back out as CSV.
func (d *Dataset) WriteCSV(w io.Writer) error {
	return d.df.WriteCSV(w)
}

func (d *Dataset) has(name string) bool {
	for _, n := range d.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func isNumeric(s series.Series) bool {
	return s.Type() == series.Int || s.Type() == series.Float
}

// values returns the cells of s as float64 for numeric columns and string
// otherwise.
func values(s series.Series) []any {
	out := make([]any, s.Len())
	nulls := s.IsNaN()
	if isNumeric(s) {
		for i, v := range s.Float() {
			if !nulls[i] {
				out[i] = v
			}
		}
		return out
	}
	for i, v := range s.Records() {
		if !nulls[i] {
			out[i] = v
		}
	}
	return out
}

func cell(v string) any {
	if v == "NaN" || v == "-" {
		return nil
	}
	return v
}
