package analytics

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Value is a float that marshals NaN and infinities as JSON null.
type Value float64

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// IsNaN reports whether v is NaN.
func (v Value) IsNaN() bool {
	return math.IsNaN(float64(v))
}

// nonNull returns the non-NaN values of vals.
func nonNull(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func mean(vals []float64) float64 {
	x := nonNull(vals)
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

func sum(vals []float64) float64 {
	return floats.Sum(nonNull(vals))
}

// Summary is a NaN-aware describe of one numeric column.
type Summary struct {
	Count  int   `json:"count"`
	Mean   Value `json:"mean"`
	Std    Value `json:"std"`
	Min    Value `json:"min"`
	Q25    Value `json:"q25"`
	Median Value `json:"median"`
	Q75    Value `json:"q75"`
	Max    Value `json:"max"`
}

// summarize computes count, mean, sample standard deviation, min, quartiles
// and max over the non-null values.
func summarize(vals []float64) Summary {
	x := nonNull(vals)
	nan := Value(math.NaN())
	s := Summary{Count: len(x), Mean: nan, Std: nan, Min: nan, Q25: nan, Median: nan, Q75: nan, Max: nan}
	if len(x) == 0 {
		return s
	}

	sort.Float64s(x)
	s.Mean = Value(stat.Mean(x, nil))
	if len(x) > 1 {
		s.Std = Value(stat.StdDev(x, nil))
	}
	s.Min = Value(x[0])
	s.Max = Value(x[len(x)-1])
	s.Q25 = Value(quantile(x, 0.25))
	s.Median = Value(quantile(x, 0.5))
	s.Q75 = Value(quantile(x, 0.75))
	return s
}

// quantile interpolates linearly between the closest ranks of sorted x.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func median(vals []float64) float64 {
	x := nonNull(vals)
	sort.Float64s(x)
	return quantile(x, 0.5)
}
