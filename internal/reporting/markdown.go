package reporting

import (
	"fmt"
	"strings"
	"time"

	"nyc-taxi-lab/internal/analytics"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	ov := r.Overview

	// Header
	sb.WriteString("# NYC Yellow Taxi Data Overview\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Month != "" {
		sb.WriteString(fmt.Sprintf("Month: %s\n\n", r.Month))
	}

	// Dataset Shape
	sb.WriteString("## Dataset Shape\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Rows | %d |\n", ov.Shape.Rows))
	sb.WriteString(fmt.Sprintf("| Columns | %d |\n", ov.Shape.Columns))
	sb.WriteString(fmt.Sprintf("| Date Range | %s to %s (%d days) |\n", dash(ov.Shape.StartDate), dash(ov.Shape.EndDate), ov.Shape.Days))
	sb.WriteString(fmt.Sprintf("| Memory | %.1f MB |\n", float64(ov.Shape.MemoryBytes)/(1<<20)))
	sb.WriteString("\n")

	// Key Metrics
	m := r.Metrics
	sb.WriteString("## Key Metrics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trips | %d |\n", m.TotalTrips))
	sb.WriteString(fmt.Sprintf("| Average Fare | $%s |\n", cell(m.AvgFare, 2)))
	sb.WriteString(fmt.Sprintf("| Total Revenue | $%s |\n", cell(m.TotalRevenue, 2)))
	sb.WriteString(fmt.Sprintf("| Average Distance | %s mi |\n", cell(m.AvgDistance, 2)))
	sb.WriteString(fmt.Sprintf("| Average Duration | %s min |\n", cell(m.AvgDuration, 1)))
	sb.WriteString(fmt.Sprintf("| Most Common Payment | %s |\n", dash(m.TopPaymentName)))
	sb.WriteString("\n")

	// Cleaning
	if r.Cleaning != nil {
		sb.WriteString("## Cleaning Steps\n\n")
		sb.WriteString(fmt.Sprintf("Input rows: %d | Output rows: %d | Dropped: %d\n\n",
			r.Cleaning.InputRows, r.Cleaning.OutputRows, r.Cleaning.Dropped()))
		sb.WriteString("| Step | Kept | Dropped |\n")
		sb.WriteString("|------|------|---------|\n")
		for _, s := range r.Cleaning.Steps {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", s.Step, s.Kept, s.Dropped))
		}
		sb.WriteString("\n")
	}

	// Column Statistics
	sb.WriteString("## Column Statistics\n\n")
	if len(ov.Stats) > 0 {
		sb.WriteString("| Column | Count | Mean | Std | Min | 25% | 50% | 75% | Max |\n")
		sb.WriteString("|--------|-------|------|-----|-----|-----|-----|-----|-----|\n")
		for _, s := range ov.Stats {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s | %s | %s | %s | %s |\n",
				s.Column, s.Count, cell(s.Mean, 2), cell(s.Std, 2), cell(s.Min, 2),
				cell(s.Q25, 2), cell(s.Median, 2), cell(s.Q75, 2), cell(s.Max, 2)))
		}
	} else {
		sb.WriteString("No numeric columns described.\n")
	}
	sb.WriteString("\n")

	// Value Ranges
	if len(ov.Ranges) > 0 {
		sb.WriteString("## Value Ranges\n\n")
		sb.WriteString("| Column | Min | Max | Mean | Unit |\n")
		sb.WriteString("|--------|-----|-----|------|------|\n")
		for _, v := range ov.Ranges {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				v.Column, cell(v.Min, 2), cell(v.Max, 2), cell(v.Mean, 2), v.Unit))
		}
		sb.WriteString("\n")
	}

	// Missing Values
	sb.WriteString("## Missing Values\n\n")
	if len(ov.Missing) > 0 {
		sb.WriteString("| Column | Missing | Pct |\n")
		sb.WriteString("|--------|---------|-----|\n")
		for _, mc := range ov.Missing {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f%% |\n", mc.Column, mc.Missing, mc.Pct))
		}
	} else {
		sb.WriteString("No missing values.\n")
	}
	sb.WriteString("\n")

	// Top Pickup Zones
	if len(r.TopZones) > 0 {
		sb.WriteString("## Top Pickup Zones\n\n")
		sb.WriteString("| Rank | Zone | Trips |\n")
		sb.WriteString("|------|------|-------|\n")
		for i, z := range r.TopZones {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d |\n", i+1, z.Zone, z.Trips))
		}
		sb.WriteString("\n")
	}

	// Column Reference
	sb.WriteString("## Columns\n\n")
	sb.WriteString("| Column | Type | Non-Null | Null % | Description |\n")
	sb.WriteString("|--------|------|----------|--------|-------------|\n")
	for _, c := range ov.Columns {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.2f | %s |\n",
			c.Column, c.Type, c.NonNull, c.NullPct, c.Description))
	}
	sb.WriteString("\n")

	return sb.String()
}

func cell(v analytics.Value, prec int) string {
	if v.IsNaN() {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, float64(v))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
