package storage

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"nyc-taxi-lab/internal/domain"
)

// tripColumns must be present in a frame passed to TripsFromFrame.
var tripColumns = []string{
	domain.ColPickupDatetime,
	domain.ColDropoffDatetime,
	domain.ColPULocationID,
	domain.ColDOLocationID,
	domain.ColPassengerCount,
	domain.ColTripDistance,
	domain.ColFareAmount,
	domain.ColTotalAmount,
	domain.ColTripDurationMinutes,
	domain.ColPickupHour,
	domain.ColPickupDayOfWeek,
	domain.ColPickupDate,
}

// TripsFromFrame converts the clean frame to records, in row order.
// Column names match case-insensitively.
func TripsFromFrame(df dataframe.DataFrame) ([]*domain.CleanTrip, error) {
	byLower := make(map[string]string, df.Ncol())
	for _, n := range df.Names() {
		byLower[strings.ToLower(n)] = n
	}
	for _, c := range tripColumns {
		if _, ok := byLower[strings.ToLower(c)]; !ok {
			return nil, fmt.Errorf("%w: clean frame has no column %s", ErrInvalidInput, c)
		}
	}

	n := df.Nrow()
	floats := func(name string) []float64 {
		if src, ok := byLower[strings.ToLower(name)]; ok {
			return df.Col(src).Float()
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	texts := func(name string) []string {
		if src, ok := byLower[strings.ToLower(name)]; ok {
			return df.Col(src).Records()
		}
		out := make([]string, n)
		for i := range out {
			out[i] = "NaN"
		}
		return out
	}

	var (
		pickup     = floats(domain.ColPickupDatetime)
		dropoff    = floats(domain.ColDropoffDatetime)
		pu         = floats(domain.ColPULocationID)
		do         = floats(domain.ColDOLocationID)
		passengers = floats(domain.ColPassengerCount)
		distance   = floats(domain.ColTripDistance)
		fare       = floats(domain.ColFareAmount)
		tip        = floats(domain.ColTipAmount)
		total      = floats(domain.ColTotalAmount)
		payment    = floats(domain.ColPaymentType)
		vendor     = floats(domain.ColVendorID)
		ratecode   = floats(domain.ColRatecodeID)
		flag       = texts(domain.ColStoreAndFwdFlag)
		extra      = floats(domain.ColExtra)
		mta        = floats(domain.ColMTATax)
		tolls      = floats(domain.ColTollsAmount)
		improve    = floats(domain.ColImprovementSurch)
		congestion = floats(domain.ColCongestionSurch)
		airport    = floats(domain.ColAirportFee)
		duration   = floats(domain.ColTripDurationMinutes)
		hour       = floats(domain.ColPickupHour)
		day        = texts(domain.ColPickupDayOfWeek)
		date       = texts(domain.ColPickupDate)
		speed      = floats(domain.ColTripSpeedMph)
		tipPct     = floats(domain.ColTipPct)
	)

	out := make([]*domain.CleanTrip, n)
	for i := 0; i < n; i++ {
		out[i] = &domain.CleanTrip{
			PickupMicros:        int64(pickup[i]),
			DropoffMicros:       int64(dropoff[i]),
			PULocationID:        int64(pu[i]),
			DOLocationID:        int64(do[i]),
			PassengerCount:      passengers[i],
			TripDistance:        distance[i],
			FareAmount:          fare[i],
			TipAmount:           optFloat(tip[i]),
			TotalAmount:         total[i],
			PaymentType:         optInt(payment[i]),
			VendorID:            optInt(vendor[i]),
			RatecodeID:          optFloat(ratecode[i]),
			StoreAndFwdFlag:     optText(flag[i]),
			Extra:               optFloat(extra[i]),
			MTATax:              optFloat(mta[i]),
			TollsAmount:         optFloat(tolls[i]),
			ImprovementSurch:    optFloat(improve[i]),
			CongestionSurch:     optFloat(congestion[i]),
			AirportFee:          optFloat(airport[i]),
			TripDurationMinutes: duration[i],
			PickupHour:          int64(hour[i]),
			PickupDayOfWeek:     day[i],
			PickupDate:          date[i],
			TripSpeedMph:        optFloat(speed[i]),
			TipPct:              optFloat(tipPct[i]),
		}
	}
	return out, nil
}

// ValidateTrip checks the fields every stored trip must carry.
func ValidateTrip(t *domain.CleanTrip) error {
	if t == nil {
		return fmt.Errorf("%w: nil trip", ErrInvalidInput)
	}
	if t.PickupMicros <= 0 || t.DropoffMicros <= t.PickupMicros {
		return fmt.Errorf("%w: trip times %d..%d", ErrInvalidInput, t.PickupMicros, t.DropoffMicros)
	}
	if t.PickupDate == "" || t.PickupDate == "NaN" {
		return fmt.Errorf("%w: trip has no pickup_date", ErrInvalidInput)
	}
	return nil
}

// Batches splits trips into consecutive chunks of at most size.
func Batches(trips []*domain.CleanTrip, size int) [][]*domain.CleanTrip {
	if size <= 0 {
		size = len(trips)
	}
	var out [][]*domain.CleanTrip
	for start := 0; start < len(trips); start += size {
		end := start + size
		if end > len(trips) {
			end = len(trips)
		}
		out = append(out, trips[start:end])
	}
	return out
}

func optFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func optInt(v float64) *int64 {
	if math.IsNaN(v) {
		return nil
	}
	n := int64(v)
	return &n
}

func optText(v string) *string {
	if v == "NaN" || v == "" {
		return nil
	}
	return &v
}
