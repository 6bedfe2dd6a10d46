// Package analytics computes dashboard metrics and chart datasets over the
// clean trip frame. Every function is a read-only pass; the frame is never
// modified.
package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"nyc-taxi-lab/internal/domain"
)

// ErrInvalidFilter is returned for a filter with an inverted or out of
// range bound.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter selects trips by pickup date, pickup hour and payment name.
// Start and End are inclusive calendar dates.
type Filter struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	HourMin  int       `json:"hour_min"`
	HourMax  int       `json:"hour_max"`
	Payments []string  `json:"payments"`
}

// Validate checks the filter bounds.
func (f Filter) Validate() error {
	if f.HourMin < 0 || f.HourMax > 23 || f.HourMin > f.HourMax {
		return fmt.Errorf("%w: hour range %d-%d", ErrInvalidFilter, f.HourMin, f.HourMax)
	}
	if f.End.Before(f.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidFilter,
			f.End.Format(domain.DateLayout), f.Start.Format(domain.DateLayout))
	}
	return nil
}

// DefaultFilter spans the full date range of df, every hour and every
// payment name present.
func DefaultFilter(df dataframe.DataFrame) Filter {
	f := Filter{HourMin: 0, HourMax: 23, Payments: PaymentNames(df)}
	if first, last, ok := DateRange(df); ok {
		f.Start, f.End = first, last
	}
	return f
}

// DateRange returns the first and last pickup dates in df.
func DateRange(df dataframe.DataFrame) (first, last time.Time, ok bool) {
	if !hasColumn(df, domain.ColPickupDate) {
		return time.Time{}, time.Time{}, false
	}
	return dateRange(df.Col(domain.ColPickupDate).Records())
}

func dateRange(dates []string) (first, last time.Time, ok bool) {
	var lo, hi string
	for _, d := range dates {
		if d == "NaN" {
			continue
		}
		if lo == "" || d < lo {
			lo = d
		}
		if hi == "" || d > hi {
			hi = d
		}
	}
	if lo == "" {
		return time.Time{}, time.Time{}, false
	}
	first, err1 := time.Parse(domain.DateLayout, lo)
	last, err2 := time.Parse(domain.DateLayout, hi)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return first, last, true
}

// PaymentNames returns the sorted names of payment codes present in df.
// Codes without a name are skipped.
func PaymentNames(df dataframe.DataFrame) []string {
	if !hasColumn(df, domain.ColPaymentType) {
		return nil
	}
	seen := make(map[string]bool)
	for _, code := range df.Col(domain.ColPaymentType).Float() {
		if name, ok := domain.PaymentName(code); ok {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Selection is the set of rows of a frame matching a filter.
type Selection struct {
	df    dataframe.DataFrame
	rows  []int
	total int
}

// All selects every row of df.
func All(df dataframe.DataFrame) *Selection {
	rows := make([]int, df.Nrow())
	for i := range rows {
		rows[i] = i
	}
	return &Selection{df: df, rows: rows, total: df.Nrow()}
}

// Apply returns the rows of df matching f, in frame order. Rows whose
// payment code has no name never match.
func Apply(df dataframe.DataFrame, f Filter) (*Selection, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	for _, c := range []string{domain.ColPickupDate, domain.ColPickupHour, domain.ColPaymentType} {
		if !hasColumn(df, c) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}

	start := f.Start.Format(domain.DateLayout)
	end := f.End.Format(domain.DateLayout)
	payments := make(map[string]bool, len(f.Payments))
	for _, p := range f.Payments {
		payments[p] = true
	}

	dates := df.Col(domain.ColPickupDate).Records()
	hours := df.Col(domain.ColPickupHour).Float()
	codes := df.Col(domain.ColPaymentType).Float()

	sel := &Selection{df: df, total: df.Nrow()}
	for i := range dates {
		if dates[i] < start || dates[i] > end {
			continue
		}
		h := hours[i]
		if math.IsNaN(h) || h < float64(f.HourMin) || h > float64(f.HourMax) {
			continue
		}
		name, ok := domain.PaymentName(codes[i])
		if !ok || !payments[name] {
			continue
		}
		sel.rows = append(sel.rows, i)
	}
	return sel, nil
}

// Len returns the number of selected rows.
func (s *Selection) Len() int {
	return len(s.rows)
}

// Total returns the number of rows in the underlying frame.
func (s *Selection) Total() int {
	return s.total
}

// Empty reports whether no rows matched.
func (s *Selection) Empty() bool {
	return len(s.rows) == 0
}

// Share returns the selected fraction of all rows as a percentage.
func (s *Selection) Share() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(len(s.rows)) * 100 / float64(s.total)
}

// Frame materializes the selection as a new frame.
func (s *Selection) Frame() dataframe.DataFrame {
	return s.df.Subset(s.rows)
}

// floats returns column name restricted to the selection. A missing column
// reads as all null.
func (s *Selection) floats(name string) []float64 {
	out := make([]float64, len(s.rows))
	if !hasColumn(s.df, name) {
		for j := range out {
			out[j] = math.NaN()
		}
		return out
	}
	all := s.df.Col(name).Float()
	for j, i := range s.rows {
		out[j] = all[i]
	}
	return out
}

// records returns text column name restricted to the selection. A missing
// column reads as all null.
func (s *Selection) records(name string) []string {
	out := make([]string, len(s.rows))
	if !hasColumn(s.df, name) {
		for j := range out {
			out[j] = "NaN"
		}
		return out
	}
	all := s.df.Col(name).Records()
	for j, i := range s.rows {
		out[j] = all[i]
	}
	return out
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}
