package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"nyc-taxi-lab/internal/domain"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrNotNumeric    = errors.New("column is not numeric")
)

// Sample size bounds.
const (
	MinSampleRows     = 5
	MaxSampleRows     = 100
	DefaultSampleRows = 20
)

// DefaultStatsColumns are described when no columns are chosen.
var DefaultStatsColumns = []string{
	domain.ColFareAmount,
	domain.ColTripDistance,
	domain.ColTipAmount,
	domain.ColTripDurationMinutes,
	domain.ColTripSpeedMph,
}

// DefaultSampleColumns are shown when no columns are chosen.
var DefaultSampleColumns = []string{
	domain.ColPickupDatetime,
	domain.ColFareAmount,
	domain.ColTripDistance,
	domain.ColPassengerCount,
	domain.ColPaymentType,
	domain.ColTipAmount,
	domain.ColPickupHour,
	domain.ColPickupDayOfWeek,
}

// rangeColumns and their display units, in order.
var rangeColumns = []struct{ name, unit string }{
	{domain.ColFareAmount, "$"},
	{domain.ColTripDistance, "mi"},
	{domain.ColTipAmount, "$"},
	{domain.ColTripDurationMinutes, "min"},
	{domain.ColTripSpeedMph, "mph"},
}

// Shape is the dataset at a glance.
type Shape struct {
	Rows        int    `json:"rows"`
	Columns     int    `json:"columns"`
	Days        int    `json:"days"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	MemoryBytes int64  `json:"memory_bytes"`
}

// ColumnStats is the describe output for one column.
type ColumnStats struct {
	Column string `json:"column"`
	Summary
}

// ColumnInfo documents one column of the dataset.
type ColumnInfo struct {
	Column      string  `json:"column"`
	Type        string  `json:"type"`
	NonNull     int     `json:"non_null"`
	NullPct     float64 `json:"null_pct"`
	Description string  `json:"description"`
}

// MissingCount is the number of nulls in one column.
type MissingCount struct {
	Column  string  `json:"column"`
	Missing int     `json:"missing"`
	Pct     float64 `json:"pct"`
}

// ValueRange is the min, max and mean of a key column.
type ValueRange struct {
	Column string `json:"column"`
	Unit   string `json:"unit"`
	Min    Value  `json:"min"`
	Max    Value  `json:"max"`
	Mean   Value  `json:"mean"`
}

// Overview gathers the data overview page.
type Overview struct {
	Shape   Shape          `json:"shape"`
	Stats   []ColumnStats  `json:"stats"`
	Columns []ColumnInfo   `json:"columns"`
	Missing []MissingCount `json:"missing"`
	Ranges  []ValueRange   `json:"ranges"`
}

// BuildOverview computes the overview with the default stats columns that
// df has.
func BuildOverview(df dataframe.DataFrame) (Overview, error) {
	stats, err := Describe(df, Present(df, DefaultStatsColumns))
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		Shape:   DatasetShape(df),
		Stats:   stats,
		Columns: Columns(df),
		Missing: MissingValues(df),
		Ranges:  ValueRanges(df),
	}, nil
}

// DatasetShape returns row and column counts, the covered days and an
// estimate of the in-memory size.
func DatasetShape(df dataframe.DataFrame) Shape {
	s := Shape{Rows: df.Nrow(), Columns: df.Ncol(), MemoryBytes: memoryEstimate(df)}
	if first, last, ok := DateRange(df); ok {
		s.StartDate = first.Format(domain.DateLayout)
		s.EndDate = last.Format(domain.DateLayout)
		s.Days = int(last.Sub(first).Hours()/24) + 1
	}
	return s
}

// memoryEstimate counts 8 bytes per numeric cell and a string header plus
// content per text cell.
func memoryEstimate(df dataframe.DataFrame) int64 {
	var total int64
	for _, name := range df.Names() {
		col := df.Col(name)
		if col.Type() != series.String {
			total += int64(col.Len()) * 8
			continue
		}
		for _, r := range col.Records() {
			total += 16 + int64(len(r))
		}
	}
	return total
}

// NumericColumns returns the names of columns that can be described.
func NumericColumns(df dataframe.DataFrame) []string {
	var out []string
	for _, name := range df.Names() {
		if isNumeric(df, name) {
			out = append(out, name)
		}
	}
	return out
}

func isNumeric(df dataframe.DataFrame, name string) bool {
	switch df.Col(name).Type() {
	case series.Float, series.Int, series.Bool:
		return !domain.IsText(name)
	}
	return false
}

// Describe returns count, mean, std, min, quartiles and max of each named
// numeric column. Nulls are skipped.
func Describe(df dataframe.DataFrame, cols []string) ([]ColumnStats, error) {
	out := make([]ColumnStats, 0, len(cols))
	for _, c := range cols {
		if !hasColumn(df, c) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
		if !isNumeric(df, c) {
			return nil, fmt.Errorf("%w: %s", ErrNotNumeric, c)
		}
		out = append(out, ColumnStats{Column: c, Summary: summarize(df.Col(c).Float())})
	}
	return out, nil
}

// Table is a rectangular slice of the dataset ready for display.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Sample returns the first n rows of the named columns. n is clamped to
// [MinSampleRows, MaxSampleRows]. Nulls are nil and timestamps are
// formatted as wall-clock time.
func Sample(df dataframe.DataFrame, cols []string, n int) (Table, error) {
	for _, c := range cols {
		if !hasColumn(df, c) {
			return Table{}, fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}
	n = clamp(n, MinSampleRows, MaxSampleRows)
	if n > df.Nrow() {
		n = df.Nrow()
	}

	t := Table{Columns: append([]string(nil), cols...), Rows: make([][]any, n)}
	for i := range t.Rows {
		t.Rows[i] = make([]any, len(cols))
	}
	for j, c := range cols {
		col := df.Col(c)
		if domain.IsText(c) || col.Type() == series.String {
			recs := col.Records()
			for i := 0; i < n; i++ {
				if recs[i] != "NaN" {
					t.Rows[i][j] = recs[i]
				}
			}
			continue
		}
		vals := col.Float()
		ts := domain.KindOf(c) == domain.KindTimestamp
		for i := 0; i < n; i++ {
			switch {
			case math.IsNaN(vals[i]):
			case ts:
				t.Rows[i][j] = domain.MicrosToTime(vals[i]).Format("2006-01-02 15:04:05")
			default:
				t.Rows[i][j] = vals[i]
			}
		}
	}
	return t, nil
}

// Columns describes every column of df in frame order.
func Columns(df dataframe.DataFrame) []ColumnInfo {
	out := make([]ColumnInfo, 0, df.Ncol())
	for _, name := range df.Names() {
		nulls := countNulls(df.Col(name))
		out = append(out, ColumnInfo{
			Column:      name,
			Type:        domain.KindOf(name).String(),
			NonNull:     df.Nrow() - nulls,
			NullPct:     pct(nulls, df.Nrow()),
			Description: domain.Description(name),
		})
	}
	return out
}

// MissingValues lists columns with at least one null, most nulls first.
func MissingValues(df dataframe.DataFrame) []MissingCount {
	var out []MissingCount
	for _, name := range df.Names() {
		n := countNulls(df.Col(name))
		if n == 0 {
			continue
		}
		out = append(out, MissingCount{Column: name, Missing: n, Pct: math.Round(pct(n, df.Nrow())*100) / 100})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Missing > out[j].Missing
	})
	return out
}

// ValueRanges returns min, max and mean of the key money, distance, time
// and speed columns present in df.
func ValueRanges(df dataframe.DataFrame) []ValueRange {
	var out []ValueRange
	for _, rc := range rangeColumns {
		if !hasColumn(df, rc.name) {
			continue
		}
		s := summarize(df.Col(rc.name).Float())
		out = append(out, ValueRange{Column: rc.name, Unit: rc.unit, Min: s.Min, Max: s.Max, Mean: s.Mean})
	}
	return out
}

func countNulls(s series.Series) int {
	n := 0
	for _, isNull := range s.IsNaN() {
		if isNull {
			n++
		}
	}
	return n
}

// Present returns the names in cols that df has, in order.
func Present(df dataframe.DataFrame, cols []string) []string {
	var out []string
	for _, c := range cols {
		if hasColumn(df, c) {
			out = append(out, c)
		}
	}
	return out
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
