// Package cleaning turns one month of raw trip records into the
// analysis-ready dataset.
package cleaning

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/schema"
)

// Thresholds applied by the row filters.
const (
	MaxFare            = 500.0
	MaxDistance        = 200.0
	MinDurationMinutes = 1.0
	MaxDurationMinutes = 300.0
	MinPassengers      = 1.0
	MaxPassengers      = 9.0
	MaxSpeedMph        = 80.0
)

// timestamp layouts accepted when a source carries pickup/dropoff as text
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// Clean applies the cleaning sequence to raw and returns the surviving rows
// with derived columns appended. Row order follows the input.
//
// Steps, in order:
//   - parse pickup/dropoff as timestamps
//   - pickup within [month start, next month start)
//   - drop nulls in pickup, dropoff, PULocationID, DOLocationID, fare_amount
//   - dropoff > pickup
//   - trip_distance > 0
//   - 0 < fare_amount <= 500
//   - total_amount > 0
//   - trip_duration_minutes = (dropoff - pickup) seconds / 60
//   - trip_distance <= 200 and duration in [1, 300]
//   - passenger_count in [1, 9]
//   - pickup_hour, pickup_day_of_week, pickup_date from pickup
//   - trip_speed_mph = distance / (duration / 60), 0 when duration is 0, null when > 80
//   - tip_pct = tip / fare * 100, 0 when fare is 0
//
// A null in any compared column fails the comparison, so the row is dropped.
// The only error is a missing required column, returned before any filtering.
func Clean(raw dataframe.DataFrame, month domain.Month) (dataframe.DataFrame, Report, error) {
	if raw.Err != nil {
		return dataframe.DataFrame{}, Report{}, fmt.Errorf("raw frame: %w", raw.Err)
	}

	proj, err := schema.Resolve(raw.Names())
	if err != nil {
		return dataframe.DataFrame{}, Report{}, err
	}

	rep := Report{Month: month.String(), InputRows: raw.Nrow()}
	t := newTrips(raw, proj)

	keep := make([]bool, raw.Nrow())
	for i := range keep {
		keep[i] = true
	}
	apply := func(step string, pred func(i int) bool) {
		kept := 0
		for i := range keep {
			if keep[i] && !pred(i) {
				keep[i] = false
			}
			if keep[i] {
				kept++
			}
		}
		rep.add(step, kept)
	}

	start, end := domain.TimeToMicros(month.Start()), domain.TimeToMicros(month.End())

	apply(StepMonthWindow, func(i int) bool {
		return t.pickup[i] >= start && t.pickup[i] < end
	})
	apply(StepDropNulls, func(i int) bool {
		return !anyNaN(t.pickup[i], t.dropoff[i], t.puLocation[i], t.doLocation[i], t.fare[i])
	})
	apply(StepDropoffAfterPickup, func(i int) bool {
		return t.dropoff[i] > t.pickup[i]
	})
	apply(StepPositiveDistance, func(i int) bool {
		return t.distance[i] > 0
	})
	apply(StepFareRange, func(i int) bool {
		return t.fare[i] > 0 && t.fare[i] <= MaxFare
	})
	apply(StepPositiveTotal, func(i int) bool {
		return t.total[i] > 0
	})

	duration := make([]float64, raw.Nrow())
	for i := range duration {
		duration[i] = (t.dropoff[i] - t.pickup[i]) / 1e6 / 60
	}

	apply(StepDistanceDuration, func(i int) bool {
		return t.distance[i] <= MaxDistance &&
			duration[i] >= MinDurationMinutes && duration[i] <= MaxDurationMinutes
	})
	apply(StepPassengerRange, func(i int) bool {
		return t.passengers[i] >= MinPassengers && t.passengers[i] <= MaxPassengers
	})

	rows := make([]int, 0, rep.OutputRows)
	for i, k := range keep {
		if k {
			rows = append(rows, i)
		}
	}

	out := dataframe.New(append(t.project(rows), derive(t, duration, rows)...)...)
	if out.Err != nil {
		return dataframe.DataFrame{}, Report{}, fmt.Errorf("assemble clean frame: %w", out.Err)
	}
	return out, rep, nil
}

// trips holds the projected raw columns as float slices for the filters.
type trips struct {
	proj    schema.Projection
	columns map[string]series.Series

	pickup, dropoff        []float64
	puLocation, doLocation []float64
	passengers, distance   []float64
	fare, tip, total       []float64
}

func newTrips(raw dataframe.DataFrame, proj schema.Projection) *trips {
	t := &trips{proj: proj, columns: make(map[string]series.Series, len(proj))}
	for _, c := range proj {
		s := raw.Col(c.Source)
		switch {
		case c.Name == domain.ColPickupDatetime || c.Name == domain.ColDropoffDatetime:
			s = parseTimestamps(s)
		case domain.IsText(c.Name):
		default:
			s = series.New(s.Float(), series.Float, c.Source)
		}
		t.columns[c.Name] = s
	}

	t.pickup = t.columns[domain.ColPickupDatetime].Float()
	t.dropoff = t.columns[domain.ColDropoffDatetime].Float()
	t.puLocation = t.columns[domain.ColPULocationID].Float()
	t.doLocation = t.columns[domain.ColDOLocationID].Float()
	t.passengers = t.columns[domain.ColPassengerCount].Float()
	t.distance = t.columns[domain.ColTripDistance].Float()
	t.fare = t.columns[domain.ColFareAmount].Float()
	t.tip = t.columns[domain.ColTipAmount].Float()
	t.total = t.columns[domain.ColTotalAmount].Float()
	return t
}

// project returns the projected columns restricted to rows, named by their
// source spelling.
func (t *trips) project(rows []int) []series.Series {
	out := make([]series.Series, 0, len(t.proj))
	for _, c := range t.proj {
		s := t.columns[c.Name]
		if domain.IsText(c.Name) {
			records := s.Records()
			vals := make([]string, len(rows))
			for j, i := range rows {
				vals[j] = records[i]
			}
			out = append(out, series.New(vals, series.String, c.Source))
			continue
		}
		out = append(out, series.New(pick(s.Float(), rows), series.Float, c.Source))
	}
	return out
}

func derive(t *trips, duration []float64, rows []int) []series.Series {
	n := len(rows)
	var (
		durations = make([]float64, n)
		hours     = make([]float64, n)
		weekdays  = make([]string, n)
		dates     = make([]string, n)
		speeds    = make([]float64, n)
		tipPcts   = make([]float64, n)
	)

	for j, i := range rows {
		d := duration[i]
		durations[j] = d

		pu := domain.MicrosToTime(t.pickup[i])
		hours[j] = float64(pu.Hour())
		weekdays[j] = pu.Weekday().String()
		dates[j] = pu.Format(domain.DateLayout)

		speeds[j] = tripSpeed(t.distance[i], d)
		tipPcts[j] = tipPct(t.tip[i], t.fare[i])
	}

	return []series.Series{
		series.New(durations, series.Float, domain.ColTripDurationMinutes),
		series.New(hours, series.Float, domain.ColPickupHour),
		series.New(weekdays, series.String, domain.ColPickupDayOfWeek),
		series.New(dates, series.String, domain.ColPickupDate),
		series.New(speeds, series.Float, domain.ColTripSpeedMph),
		series.New(tipPcts, series.Float, domain.ColTipPct),
	}
}

// tripSpeed is miles per hour, 0 for a zero duration and NaN above MaxSpeedMph.
func tripSpeed(distance, durationMinutes float64) float64 {
	if !(durationMinutes > 0) {
		return 0
	}
	speed := distance / (durationMinutes / 60)
	if speed > MaxSpeedMph {
		return math.NaN()
	}
	return speed
}

func tipPct(tip, fare float64) float64 {
	if !(fare > 0) {
		return 0
	}
	return tip / fare * 100
}

// parseTimestamps returns s as Unix microseconds. Numeric input is taken as
// already converted; text is parsed as UTC wall-clock time and unparseable
// values become NaN.
func parseTimestamps(s series.Series) series.Series {
	if s.Type() != series.String {
		return series.New(s.Float(), series.Float, s.Name)
	}

	records := s.Records()
	nulls := s.IsNaN()
	vals := make([]float64, len(records))
	for i, rec := range records {
		vals[i] = math.NaN()
		if nulls[i] {
			continue
		}
		rec = strings.TrimSpace(rec)
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, rec); err == nil {
				vals[i] = domain.TimeToMicros(ts)
				break
			}
		}
	}
	return series.New(vals, series.Float, s.Name)
}

func pick(vals []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for j, i := range rows {
		out[j] = vals[i]
	}
	return out
}

func anyNaN(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
