package storage

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"nyc-taxi-lab/internal/domain"
)

func cleanFrame() dataframe.DataFrame {
	nan := math.NaN()
	return dataframe.New(
		series.New([]float64{1704096000000000, 1704182400000000}, series.Float, domain.ColPickupDatetime),
		series.New([]float64{1704096600000000, 1704183000000000}, series.Float, domain.ColDropoffDatetime),
		series.New([]float64{161, 132}, series.Float, domain.ColPULocationID),
		series.New([]float64{236, 161}, series.Float, domain.ColDOLocationID),
		series.New([]float64{1, 2}, series.Float, domain.ColPassengerCount),
		series.New([]float64{2.5, 17.1}, series.Float, domain.ColTripDistance),
		series.New([]float64{14, 70}, series.Float, domain.ColFareAmount),
		series.New([]float64{3, nan}, series.Float, domain.ColTipAmount),
		series.New([]float64{20, 82.5}, series.Float, domain.ColTotalAmount),
		series.New([]float64{1, nan}, series.Float, domain.ColPaymentType),
		series.New([]float64{2, 1}, series.Float, domain.ColVendorID),
		series.New([]float64{0, 1.75}, series.Float, "Airport_fee"),
		series.New([]string{"N", "NaN"}, series.String, domain.ColStoreAndFwdFlag),
		series.New([]float64{10, 10}, series.Float, domain.ColTripDurationMinutes),
		series.New([]float64{8, 8}, series.Float, domain.ColPickupHour),
		series.New([]string{"Monday", "Tuesday"}, series.String, domain.ColPickupDayOfWeek),
		series.New([]string{"2024-01-01", "2024-01-02"}, series.String, domain.ColPickupDate),
		series.New([]float64{15, nan}, series.Float, domain.ColTripSpeedMph),
		series.New([]float64{21.43, nan}, series.Float, domain.ColTipPct),
	)
}

func TestTripsFromFrame(t *testing.T) {
	trips, err := TripsFromFrame(cleanFrame())
	if err != nil {
		t.Fatalf("TripsFromFrame failed: %v", err)
	}
	if len(trips) != 2 {
		t.Fatalf("expected 2 trips, got %d", len(trips))
	}

	a, b := trips[0], trips[1]
	if a.PickupMicros != 1704096000000000 || a.PULocationID != 161 || a.PickupDayOfWeek != "Monday" {
		t.Errorf("first trip %+v", a)
	}
	if a.TipAmount == nil || *a.TipAmount != 3 || a.PaymentType == nil || *a.PaymentType != 1 {
		t.Error("present optional values must be set")
	}
	if a.StoreAndFwdFlag == nil || *a.StoreAndFwdFlag != "N" {
		t.Error("store_and_fwd_flag lost")
	}
	if b.AirportFee == nil || *b.AirportFee != 1.75 {
		t.Error("Airport_fee must match case-insensitively")
	}
	if b.TipAmount != nil || b.PaymentType != nil || b.StoreAndFwdFlag != nil || b.TripSpeedMph != nil {
		t.Error("nulls must map to nil")
	}
	if a.RatecodeID != nil || a.Extra != nil {
		t.Error("absent columns must map to nil")
	}
	for _, tr := range trips {
		if err := ValidateTrip(tr); err != nil {
			t.Errorf("converted trip invalid: %v", err)
		}
	}
}

func TestTripsFromFrame_MissingColumn(t *testing.T) {
	df := cleanFrame().Drop(domain.ColPickupDate)
	if _, err := TripsFromFrame(df); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestValidateTrip(t *testing.T) {
	ok := &domain.CleanTrip{PickupMicros: 10, DropoffMicros: 20, PickupDate: "2024-01-01"}
	if err := ValidateTrip(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cases := []*domain.CleanTrip{
		nil,
		{PickupMicros: 0, DropoffMicros: 20, PickupDate: "2024-01-01"},
		{PickupMicros: 20, DropoffMicros: 20, PickupDate: "2024-01-01"},
		{PickupMicros: 10, DropoffMicros: 20},
	}
	for i, c := range cases {
		if err := ValidateTrip(c); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestBatches(t *testing.T) {
	trips := make([]*domain.CleanTrip, 5)
	got := Batches(trips, 2)
	if len(got) != 3 || len(got[0]) != 2 || len(got[2]) != 1 {
		t.Errorf("unexpected split: %d batches", len(got))
	}
	if len(Batches(trips, 0)) != 1 {
		t.Error("non-positive size means one batch")
	}
	if len(Batches(nil, 10)) != 0 {
		t.Error("no trips means no batches")
	}
}
