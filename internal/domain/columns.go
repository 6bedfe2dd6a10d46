package domain

import (
	"sort"
	"strings"
)

// Raw trip columns as named by the TLC source file.
const (
	ColPickupDatetime   = "tpep_pickup_datetime"
	ColDropoffDatetime  = "tpep_dropoff_datetime"
	ColPULocationID     = "PULocationID"
	ColDOLocationID     = "DOLocationID"
	ColPassengerCount   = "passenger_count"
	ColTripDistance     = "trip_distance"
	ColFareAmount       = "fare_amount"
	ColTipAmount        = "tip_amount"
	ColTotalAmount      = "total_amount"
	ColPaymentType      = "payment_type"
	ColVendorID         = "VendorID"
	ColRatecodeID       = "RatecodeID"
	ColStoreAndFwdFlag  = "store_and_fwd_flag"
	ColExtra            = "extra"
	ColMTATax           = "mta_tax"
	ColTollsAmount      = "tolls_amount"
	ColImprovementSurch = "improvement_surcharge"
	ColCongestionSurch  = "congestion_surcharge"
	ColAirportFee       = "airport_fee"
)

// Derived columns appended by the cleaning pipeline.
const (
	ColTripDurationMinutes = "trip_duration_minutes"
	ColPickupHour          = "pickup_hour"
	ColPickupDayOfWeek     = "pickup_day_of_week"
	ColPickupDate          = "pickup_date"
	ColTripSpeedMph        = "trip_speed_mph"
	ColTipPct              = "tip_pct"
)

// RequiredColumns must all be present in the raw trip source.
var RequiredColumns = []string{
	ColPickupDatetime,
	ColDropoffDatetime,
	ColPULocationID,
	ColDOLocationID,
	ColPassengerCount,
	ColTripDistance,
	ColFareAmount,
	ColTipAmount,
	ColTotalAmount,
	ColPaymentType,
}

// OptionalColumns are read when the source has them and skipped otherwise.
var OptionalColumns = []string{
	ColVendorID,
	ColRatecodeID,
	ColStoreAndFwdFlag,
	ColExtra,
	ColMTATax,
	ColTollsAmount,
	ColImprovementSurch,
	ColCongestionSurch,
	ColAirportFee,
}

// DerivedColumns in the order the pipeline appends them.
var DerivedColumns = []string{
	ColTripDurationMinutes,
	ColPickupHour,
	ColPickupDayOfWeek,
	ColPickupDate,
	ColTripSpeedMph,
	ColTipPct,
}

// Kind is the physical type of a column in a parquet artifact.
type Kind int

const (
	KindDouble Kind = iota
	KindInt64
	KindTimestamp
	KindDate
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindTimestamp:
		return "timestamp"
	case KindDate:
		return "date"
	case KindString:
		return "string"
	default:
		return "double"
	}
}

// keyed by lower-case column name so source spellings like Airport_fee resolve
var columnKinds = map[string]Kind{
	"tpep_pickup_datetime":  KindTimestamp,
	"tpep_dropoff_datetime": KindTimestamp,
	"pulocationid":          KindInt64,
	"dolocationid":          KindInt64,
	"payment_type":          KindInt64,
	"vendorid":              KindInt64,
	"store_and_fwd_flag":    KindString,
	"pickup_hour":           KindInt64,
	"pickup_day_of_week":    KindString,
	"pickup_date":           KindDate,
}

// KindOf returns the physical kind of a known column. Unknown columns are doubles.
func KindOf(name string) Kind {
	if k, ok := columnKinds[strings.ToLower(name)]; ok {
		return k
	}
	return KindDouble
}

// IsText reports whether the column is held as strings in memory.
func IsText(name string) bool {
	k := KindOf(name)
	return k == KindString || k == KindDate
}

var columnDescriptions = map[string]string{
	"vendorid":              "Which taxi company (1=CMT, 2=VTS)",
	"tpep_pickup_datetime":  "When the trip started",
	"tpep_dropoff_datetime": "When the trip ended",
	"passenger_count":       "How many people (driver-entered)",
	"trip_distance":         "Miles traveled according to the meter",
	"ratecodeid":            "Rate type (1=Standard, 2=JFK, 3=Newark, etc.)",
	"store_and_fwd_flag":    "Was trip data stored before sending? (Y/N)",
	"pulocationid":          "Pickup zone ID (there are 263 zones in NYC)",
	"dolocationid":          "Dropoff zone ID",
	"payment_type":          "1=Card, 2=Cash, 3=No charge, 4=Dispute",
	"fare_amount":           "The meter fare (before tips/tolls/extras)",
	"extra":                 "Rush hour and overnight surcharges",
	"mta_tax":               "MTA tax, always $0.50",
	"tip_amount":            "Tip (only recorded for card payments)",
	"tolls_amount":          "Bridge/tunnel tolls",
	"improvement_surcharge": "$0.30 for taxi improvements",
	"total_amount":          "Everything added up",
	"congestion_surcharge":  "Manhattan congestion fee",
	"airport_fee":           "For airport pickups",
	"trip_duration_minutes": "[Derived] Trip length in minutes",
	"trip_speed_mph":        "[Derived] Distance / duration in hours",
	"pickup_hour":           "[Derived] Hour of pickup (0-23)",
	"pickup_day_of_week":    "[Derived] Day name (Monday-Sunday)",
	"pickup_date":           "[Derived] Just the date part",
	"tip_pct":               "[Derived] Tip as a percentage of fare",
}

// Description returns the human-readable meaning of a column, or "-" if unknown.
func Description(name string) string {
	if d, ok := columnDescriptions[strings.ToLower(name)]; ok {
		return d
	}
	return "-"
}

// OrderColumns sorts column names into output order: required, optional,
// derived, then anything else in the given order.
func OrderColumns(names []string) []string {
	rank := make(map[string]int)
	for i, c := range RequiredColumns {
		rank[strings.ToLower(c)] = i
	}
	for i, c := range OptionalColumns {
		rank[strings.ToLower(c)] = len(RequiredColumns) + i
	}
	for i, c := range DerivedColumns {
		rank[strings.ToLower(c)] = len(RequiredColumns) + len(OptionalColumns) + i
	}

	known := make([]string, 0, len(names))
	var rest []string
	for _, n := range names {
		if _, ok := rank[strings.ToLower(n)]; ok {
			known = append(known, n)
		} else {
			rest = append(rest, n)
		}
	}
	sort.SliceStable(known, func(i, j int) bool {
		return rank[strings.ToLower(known[i])] < rank[strings.ToLower(known[j])]
	})
	return append(known, rest...)
}
