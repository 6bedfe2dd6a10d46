// Package parquetio reads and writes trip datasets as parquet files.
//
// Frames follow one convention in both directions: numeric columns are
// series.Float with NaN as null (timestamps in Unix microseconds), text
// columns are series.String with "NaN" as null.
package parquetio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/parquet-go/parquet-go"

	"nyc-taxi-lab/internal/domain"
)

// NullText is how a null text value is stored in a frame.
const NullText = "NaN"

const readBatch = 4096

// ErrColumnNotFound is returned when a projected column is not in the file.
var ErrColumnNotFound = errors.New("column not found")

// Columns returns the top-level column names of a parquet file without
// reading any row data.
func Columns(path string) ([]string, error) {
	f, pf, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fields := pf.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}
	return names, nil
}

// ReadFrame reads only the named columns, in the given order.
func ReadFrame(path string, names []string) (dataframe.DataFrame, error) {
	f, pf, err := open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()

	schema := pf.Schema()
	cols := make([]series.Series, 0, len(names))
	for _, name := range names {
		leaf, ok := schema.Lookup(name)
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %s in %s", ErrColumnNotFound, name, path)
		}

		s, err := readColumn(pf, leaf.ColumnIndex, newDecoder(leaf.Node), name)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("read column %s: %w", name, err)
		}
		cols = append(cols, s)
	}

	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("assemble frame: %w", df.Err)
	}
	return df, nil
}

// ReadAll reads every column of the file, ordered canonically.
func ReadAll(path string) (dataframe.DataFrame, error) {
	names, err := Columns(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return ReadFrame(path, domain.OrderColumns(names))
}

func open(path string) (*os.File, *parquet.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat parquet: %w", err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("parse parquet %s: %w", path, err)
	}
	return f, pf, nil
}

type valueMode int

const (
	modeNumber valueMode = iota
	modeTimestamp
	modeDate
	modeText
)

// decoder turns parquet values of one column into frame values.
type decoder struct {
	mode  valueMode
	scale float64 // raw timestamp / scale = microseconds
}

func newDecoder(node parquet.Node) decoder {
	typ := node.Type()
	if lt := typ.LogicalType(); lt != nil {
		switch {
		case lt.Timestamp != nil:
			d := decoder{mode: modeTimestamp, scale: 1}
			switch {
			case lt.Timestamp.Unit.Millis != nil:
				d.scale = 1e-3
			case lt.Timestamp.Unit.Nanos != nil:
				d.scale = 1e3
			}
			return d
		case lt.Date != nil:
			return decoder{mode: modeDate}
		case lt.UTF8 != nil:
			return decoder{mode: modeText}
		}
	}

	switch typ.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return decoder{mode: modeText}
	}
	return decoder{mode: modeNumber}
}

func (d decoder) text() bool {
	return d.mode == modeText || d.mode == modeDate
}

func (d decoder) number(v parquet.Value) float64 {
	if v.IsNull() {
		return math.NaN()
	}

	var f float64
	switch v.Kind() {
	case parquet.Boolean:
		if v.Boolean() {
			f = 1
		}
	case parquet.Int32:
		f = float64(v.Int32())
	case parquet.Int64:
		f = float64(v.Int64())
	case parquet.Float:
		f = float64(v.Float())
	case parquet.Double:
		f = v.Double()
	default:
		return math.NaN()
	}

	if d.mode == modeTimestamp {
		return math.Trunc(f / d.scale)
	}
	return f
}

func (d decoder) string(v parquet.Value) string {
	if v.IsNull() {
		return NullText
	}
	if d.mode == modeDate {
		return time.Unix(int64(v.Int32())*86400, 0).UTC().Format(domain.DateLayout)
	}
	return string(v.ByteArray())
}

func readColumn(pf *parquet.File, columnIndex int, dec decoder, name string) (series.Series, error) {
	capacity := int(pf.NumRows())
	var (
		floats []float64
		texts  []string
	)
	if dec.text() {
		texts = make([]string, 0, capacity)
	} else {
		floats = make([]float64, 0, capacity)
	}

	buf := make([]parquet.Value, readBatch)
	for _, rg := range pf.RowGroups() {
		pages := rg.ColumnChunks()[columnIndex].Pages()
		err := func() error {
			defer pages.Close()
			for {
				page, err := pages.ReadPage()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}

				values := page.Values()
				for {
					n, err := values.ReadValues(buf)
					for _, v := range buf[:n] {
						if dec.text() {
							texts = append(texts, dec.string(v))
						} else {
							floats = append(floats, dec.number(v))
						}
					}
					if errors.Is(err, io.EOF) || (err == nil && n == 0) {
						break
					}
					if err != nil {
						return err
					}
				}
			}
		}()
		if err != nil {
			return series.Series{}, err
		}
	}

	if dec.text() {
		return series.New(texts, series.String, name), nil
	}
	return series.New(floats, series.Float, name), nil
}
