package analytics

import (
	"math"
	"sort"

	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/zones"
)

// Histogram settings for the trip distance chart.
const (
	DistanceMax  = 30.0
	DistanceBins = 60
)

// TopZonesLimit is the number of zones in the pickup ranking.
const TopZonesLimit = 10

// KeyMetrics are the headline numbers of the dashboard.
type KeyMetrics struct {
	TotalTrips     int    `json:"total_trips"`
	AvgFare        Value  `json:"avg_fare"`
	TotalRevenue   Value  `json:"total_revenue"`
	AvgDistance    Value  `json:"avg_distance"`
	AvgDuration    Value  `json:"avg_duration_minutes"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	Days           int    `json:"days"`
	TopPaymentName string `json:"top_payment,omitempty"`
}

// ComputeKeyMetrics summarizes the selection.
func ComputeKeyMetrics(s *Selection) KeyMetrics {
	m := KeyMetrics{
		TotalTrips:   s.Len(),
		AvgFare:      Value(mean(s.floats(domain.ColFareAmount))),
		TotalRevenue: Value(sum(s.floats(domain.ColTotalAmount))),
		AvgDistance:  Value(mean(s.floats(domain.ColTripDistance))),
		AvgDuration:  Value(mean(s.floats(domain.ColTripDurationMinutes))),
	}

	if first, last, ok := dateRange(s.records(domain.ColPickupDate)); ok {
		m.StartDate = first.Format(domain.DateLayout)
		m.EndDate = last.Format(domain.DateLayout)
		m.Days = int(last.Sub(first).Hours()/24) + 1
	}

	if shares := PaymentBreakdown(s); len(shares) > 0 {
		m.TopPaymentName = shares[0].Name
	}
	return m
}

// ZoneCount is one bar of the pickup zone ranking.
type ZoneCount struct {
	LocationID int    `json:"location_id"`
	Zone       string `json:"zone"`
	Trips      int    `json:"trips"`
}

// TopPickupZones ranks pickup zones by trip count. Ids missing from the
// lookup are left out. The n busiest zones are returned in ascending order
// of count, ready for a horizontal bar chart; ties rank the lower id higher.
func TopPickupZones(s *Selection, lookup *zones.Lookup, n int) []ZoneCount {
	counts := make(map[int]int)
	for _, id := range s.floats(domain.ColPULocationID) {
		if math.IsNaN(id) {
			continue
		}
		counts[int(id)]++
	}

	ranked := make([]ZoneCount, 0, len(counts))
	for id, c := range counts {
		name, ok := lookup.Name(id)
		if !ok {
			continue
		}
		ranked = append(ranked, ZoneCount{LocationID: id, Zone: name, Trips: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Trips != ranked[j].Trips {
			return ranked[i].Trips > ranked[j].Trips
		}
		return ranked[i].LocationID < ranked[j].LocationID
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	for i, j := 0, len(ranked)-1; i < j; i, j = i+1, j-1 {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	}
	return ranked
}

// HourFare is one point of the fare-by-hour line.
type HourFare struct {
	Hour    int   `json:"hour"`
	AvgFare Value `json:"avg_fare"`
	Trips   int   `json:"trips"`
}

// FareByHour averages fare_amount per pickup hour. Only hours with trips
// appear, in ascending order.
func FareByHour(s *Selection) []HourFare {
	var (
		sums   [24]float64
		counts [24]int
		trips  [24]int
	)
	hours := s.floats(domain.ColPickupHour)
	fares := s.floats(domain.ColFareAmount)
	for i, h := range hours {
		if math.IsNaN(h) || h < 0 || h > 23 {
			continue
		}
		hi := int(h)
		trips[hi]++
		if !math.IsNaN(fares[i]) {
			sums[hi] += fares[i]
			counts[hi]++
		}
	}

	var out []HourFare
	for h := 0; h < 24; h++ {
		if trips[h] == 0 {
			continue
		}
		avg := math.NaN()
		if counts[h] > 0 {
			avg = sums[h] / float64(counts[h])
		}
		out = append(out, HourFare{Hour: h, AvgFare: Value(avg), Trips: trips[h]})
	}
	return out
}

// Histogram is a binned distribution with its median.
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
	Median Value     `json:"median"`
	N      int       `json:"n"`
}

// DistanceHistogram bins trip distances up to DistanceMax miles into
// DistanceBins equal bins. Longer trips are excluded from both the bins and
// the median.
func DistanceHistogram(s *Selection) Histogram {
	var kept []float64
	for _, d := range s.floats(domain.ColTripDistance) {
		if !math.IsNaN(d) && d <= DistanceMax {
			kept = append(kept, d)
		}
	}
	h := binned(kept, 0, DistanceMax, DistanceBins)
	h.Median = Value(median(kept))
	return h
}

// binned counts vals into n equal bins on [lo, hi]. The last bin is closed.
func binned(vals []float64, lo, hi float64, n int) Histogram {
	h := Histogram{
		Edges:  make([]float64, n+1),
		Counts: make([]int, n),
	}
	width := (hi - lo) / float64(n)
	for i := range h.Edges {
		h.Edges[i] = lo + float64(i)*width
	}
	h.Edges[n] = hi

	for _, v := range vals {
		if v < lo || v > hi {
			continue
		}
		b := int((v - lo) / width)
		if b >= n {
			b = n - 1
		}
		h.Counts[b]++
		h.N++
	}
	return h
}

// PaymentShare is one slice of the payment breakdown.
type PaymentShare struct {
	Name  string  `json:"name"`
	Trips int     `json:"trips"`
	Share float64 `json:"share"`
}

// PaymentBreakdown counts trips per payment name, largest first. Unnamed
// codes are not counted and do not contribute to shares.
func PaymentBreakdown(s *Selection) []PaymentShare {
	counts := make(map[string]int)
	total := 0
	for _, code := range s.floats(domain.ColPaymentType) {
		name, ok := domain.PaymentName(code)
		if !ok {
			continue
		}
		counts[name]++
		total++
	}

	out := make([]PaymentShare, 0, len(counts))
	for name, c := range counts {
		out = append(out, PaymentShare{Name: name, Trips: c, Share: float64(c) * 100 / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Trips != out[j].Trips {
			return out[i].Trips > out[j].Trips
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Weekdays in heatmap row order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Heatmap is trip volume by weekday (rows) and pickup hour (columns).
type Heatmap struct {
	Days   []string `json:"days"`
	Hours  []int    `json:"hours"`
	Counts [][]int  `json:"counts"`
}

// DayHourHeatmap counts trips per weekday and hour. Every cell is present,
// zero when no trips fall in it.
func DayHourHeatmap(s *Selection) Heatmap {
	row := make(map[string]int, len(Weekdays))
	for i, d := range Weekdays {
		row[d] = i
	}

	h := Heatmap{
		Days:   append([]string(nil), Weekdays...),
		Hours:  make([]int, 24),
		Counts: make([][]int, len(Weekdays)),
	}
	for i := range h.Hours {
		h.Hours[i] = i
	}
	for i := range h.Counts {
		h.Counts[i] = make([]int, 24)
	}

	days := s.records(domain.ColPickupDayOfWeek)
	hours := s.floats(domain.ColPickupHour)
	for i, d := range days {
		r, ok := row[d]
		if !ok || math.IsNaN(hours[i]) || hours[i] < 0 || hours[i] > 23 {
			continue
		}
		h.Counts[r][int(hours[i])]++
	}
	return h
}
