package cleaning

import (
	"fmt"
	"strings"
)

// Filter step names, in pipeline order.
const (
	StepMonthWindow        = "month_window"
	StepDropNulls          = "drop_nulls"
	StepDropoffAfterPickup = "dropoff_after_pickup"
	StepPositiveDistance   = "positive_distance"
	StepFareRange          = "fare_range"
	StepPositiveTotal      = "positive_total"
	StepDistanceDuration   = "distance_duration_range"
	StepPassengerRange     = "passenger_range"
)

// StepCount records how many rows a filter step kept and removed.
type StepCount struct {
	Step    string `json:"step"`
	Kept    int    `json:"kept"`
	Dropped int    `json:"dropped"`
}

// Report summarizes one cleaning run.
type Report struct {
	Month      string      `json:"month"`
	InputRows  int         `json:"input_rows"`
	OutputRows int         `json:"output_rows"`
	Steps      []StepCount `json:"steps"`
}

func (r *Report) add(step string, kept int) {
	prev := r.InputRows
	if len(r.Steps) > 0 {
		prev = r.Steps[len(r.Steps)-1].Kept
	}
	r.Steps = append(r.Steps, StepCount{Step: step, Kept: kept, Dropped: prev - kept})
	r.OutputRows = kept
}

// Dropped returns the total number of rows removed.
func (r Report) Dropped() int {
	return r.InputRows - r.OutputRows
}

// String renders the report as one line per step.
func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cleaning %s: %d -> %d rows\n", r.Month, r.InputRows, r.OutputRows)
	for _, s := range r.Steps {
		fmt.Fprintf(&sb, "  %-24s kept=%d dropped=%d\n", s.Step, s.Kept, s.Dropped)
	}
	return sb.String()
}
