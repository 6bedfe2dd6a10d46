package reporting

import (
	"time"

	"nyc-taxi-lab/internal/analytics"
	"nyc-taxi-lab/internal/cleaning"
)

// Report is the data overview of one clean month.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Month       string

	Metrics  analytics.KeyMetrics
	Overview analytics.Overview

	// Busiest pickup zones, busiest first
	TopZones []analytics.ZoneCount

	// Cleaning is nil when the dataset came from the cache.
	Cleaning *cleaning.Report
}

// File names written by Write.
const (
	MarkdownFile = "DATA_OVERVIEW.md"
	StatsCSVFile = "taxi_statistics.csv"
)
