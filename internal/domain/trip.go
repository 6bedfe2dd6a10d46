package domain

// CleanTrip is one row of the cleaned dataset in record form.
// Used by storage sinks; the pipeline itself works on whole columns.
// Optional source columns are nil when absent or null.
type CleanTrip struct {
	PickupMicros        int64    // tpep_pickup_datetime, Unix microseconds
	DropoffMicros       int64    // tpep_dropoff_datetime, Unix microseconds
	PULocationID        int64    // pickup zone
	DOLocationID        int64    // dropoff zone
	PassengerCount      float64  // 1..9
	TripDistance        float64  // miles, (0, 200]
	FareAmount          float64  // (0, 500]
	TipAmount           *float64 // NULL if source value missing
	TotalAmount         float64  // > 0
	PaymentType         *int64   // NULL if source value missing
	VendorID            *int64
	RatecodeID          *float64
	StoreAndFwdFlag     *string
	Extra               *float64
	MTATax              *float64
	TollsAmount         *float64
	ImprovementSurch    *float64
	CongestionSurch     *float64
	AirportFee          *float64
	TripDurationMinutes float64  // [1, 300]
	PickupHour          int64    // 0..23
	PickupDayOfWeek     string   // Monday..Sunday
	PickupDate          string   // YYYY-MM-DD
	TripSpeedMph        *float64 // NULL when above 80
	TipPct              *float64 // NULL only when tip is NULL
}
