package parquetio

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/parquet-go/parquet-go"

	"nyc-taxi-lab/internal/domain"
)

const writeBatch = 8192

// WriteFrame writes df as a parquet file. Each column gets the physical kind
// registered in domain.KindOf and is optional, so NaN values become nulls.
// Output is a pure function of the frame's contents.
func WriteFrame(w io.Writer, df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("write frame: %w", df.Err)
	}

	names := df.Names()
	group := make(parquet.Group, len(names))
	for _, name := range names {
		group[name] = parquet.Optional(nodeFor(domain.KindOf(name)))
	}
	schema := parquet.NewSchema("trips", group)

	cols := make([]column, len(names))
	for i, name := range names {
		leaf, ok := schema.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: %s in output schema", ErrColumnNotFound, name)
		}
		s := df.Col(name)
		c := column{index: leaf.ColumnIndex, kind: domain.KindOf(name)}
		if domain.IsText(name) {
			c.texts = s.Records()
			c.nulls = s.IsNaN()
		} else {
			c.floats = s.Float()
		}
		cols[i] = c
	}

	writer := parquet.NewWriter(w, schema, parquet.Compression(&parquet.Zstd))

	rows := make([]parquet.Row, 0, writeBatch)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if _, err := writer.WriteRows(rows); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
		rows = rows[:0]
		return nil
	}

	for r := 0; r < df.Nrow(); r++ {
		row := make(parquet.Row, len(cols))
		for _, c := range cols {
			row[c.index] = c.value(r)
		}
		rows = append(rows, row)
		if len(rows) == writeBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func nodeFor(kind domain.Kind) parquet.Node {
	switch kind {
	case domain.KindInt64:
		return parquet.Int(64)
	case domain.KindTimestamp:
		return parquet.Timestamp(parquet.Microsecond)
	case domain.KindDate:
		return parquet.Date()
	case domain.KindString:
		return parquet.String()
	default:
		return parquet.Leaf(parquet.DoubleType)
	}
}

// column is one frame column prepared for row assembly.
type column struct {
	index  int
	kind   domain.Kind
	floats []float64
	texts  []string
	nulls  []bool
}

func (c column) value(r int) parquet.Value {
	null := parquet.NullValue().Level(0, 0, c.index)

	switch c.kind {
	case domain.KindString:
		if c.nulls[r] {
			return null
		}
		return parquet.ByteArrayValue([]byte(c.texts[r])).Level(0, 1, c.index)
	case domain.KindDate:
		if c.nulls[r] {
			return null
		}
		t, err := time.Parse(domain.DateLayout, c.texts[r])
		if err != nil {
			return null
		}
		return parquet.Int32Value(int32(t.Unix() / 86400)).Level(0, 1, c.index)
	}

	f := c.floats[r]
	if math.IsNaN(f) {
		return null
	}
	switch c.kind {
	case domain.KindInt64, domain.KindTimestamp:
		return parquet.Int64Value(int64(f)).Level(0, 1, c.index)
	default:
		return parquet.DoubleValue(f).Level(0, 1, c.index)
	}
}
