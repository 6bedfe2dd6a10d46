package reporting

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"nyc-taxi-lab/internal/analytics"
	"nyc-taxi-lab/internal/cleaning"
	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/zones"
)

var fixedClock = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }

func testFrame() dataframe.DataFrame {
	return dataframe.New(
		series.New([]float64{161, 161, 236, 132}, series.Float, domain.ColPULocationID),
		series.New([]float64{1.2, 3.4, 8, 17}, series.Float, domain.ColTripDistance),
		series.New([]float64{10, 20, 30, 70}, series.Float, domain.ColFareAmount),
		series.New([]float64{2, math.NaN(), 5, 0}, series.Float, domain.ColTipAmount),
		series.New([]float64{14, 25, 40, 80}, series.Float, domain.ColTotalAmount),
		series.New([]float64{1, 2, 1, 1}, series.Float, domain.ColPaymentType),
		series.New([]float64{6, 12, 20, 35}, series.Float, domain.ColTripDurationMinutes),
		series.New([]string{"2024-01-01", "2024-01-01", "2024-01-02", "2024-01-31"}, series.String, domain.ColPickupDate),
	)
}

func testLookup(t *testing.T) *zones.Lookup {
	t.Helper()
	l, err := zones.FromZones([]domain.Zone{
		{LocationID: 132, Borough: "Queens", Zone: "JFK Airport"},
		{LocationID: 161, Borough: "Manhattan", Zone: "Midtown Center"},
		{LocationID: 236, Borough: "Manhattan", Zone: "Upper East Side North"},
	})
	if err != nil {
		t.Fatalf("FromZones failed: %v", err)
	}
	return l
}

func TestGenerate_Deterministic(t *testing.T) {
	df := testFrame()
	g := NewGenerator(testLookup(t), nil).WithClock(fixedClock)

	r1, err := g.Generate(df, "2024-01", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	r2, err := g.Generate(df, "2024-01", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if RenderMarkdown(r1) != RenderMarkdown(r2) {
		t.Error("Markdown output is not deterministic")
	}
	if RenderStatsCSV(r1.Overview.Stats) != RenderStatsCSV(r2.Overview.Stats) {
		t.Error("CSV output is not deterministic")
	}
}

func TestGenerate_Summary(t *testing.T) {
	r, err := NewGenerator(testLookup(t), nil).WithClock(fixedClock).Generate(testFrame(), "2024-01", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !r.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("GeneratedAt = %v", r.GeneratedAt)
	}
	if r.Metrics.TotalTrips != 4 || r.Metrics.Days != 31 {
		t.Errorf("metrics %+v", r.Metrics)
	}
	if len(r.TopZones) != 3 || r.TopZones[0].LocationID != 161 || r.TopZones[0].Trips != 2 {
		t.Errorf("top zones should be busiest first: %+v", r.TopZones)
	}
	// trip_speed_mph is absent, so four default columns remain
	if len(r.Overview.Stats) != 4 {
		t.Errorf("expected 4 described columns, got %d", len(r.Overview.Stats))
	}
}

func TestGenerate_StatsColumns(t *testing.T) {
	g := NewGenerator(nil, []string{domain.ColTotalAmount})
	r, err := g.Generate(testFrame(), "2024-01", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(r.Overview.Stats) != 1 || r.Overview.Stats[0].Column != domain.ColTotalAmount {
		t.Errorf("stats %+v", r.Overview.Stats)
	}
	if r.TopZones != nil {
		t.Error("no lookup means no zone ranking")
	}

	if _, err := NewGenerator(nil, []string{"bogus"}).Generate(testFrame(), "2024-01", nil); err == nil {
		t.Error("unknown stats column should fail")
	}
}

func TestRenderMarkdown_Sections(t *testing.T) {
	clean := &cleaning.Report{
		Month:      "2024-01",
		InputRows:  10,
		OutputRows: 4,
		Steps: []cleaning.StepCount{
			{Step: cleaning.StepMonthWindow, Kept: 8, Dropped: 2},
			{Step: cleaning.StepFareRange, Kept: 4, Dropped: 4},
		},
	}
	r, err := NewGenerator(testLookup(t), nil).WithClock(fixedClock).Generate(testFrame(), "2024-01", clean)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	md := RenderMarkdown(r)

	sections := []string{
		"# NYC Yellow Taxi Data Overview",
		"## Dataset Shape",
		"## Key Metrics",
		"## Cleaning Steps",
		"## Column Statistics",
		"## Value Ranges",
		"## Missing Values",
		"## Top Pickup Zones",
		"## Columns",
	}
	for _, s := range sections {
		if !strings.Contains(md, s) {
			t.Errorf("Markdown missing section: %s", s)
		}
	}

	checks := []string{
		"Generated: 2024-02-01T12:00:00Z",
		"| Rows | 4 |",
		"| Date Range | 2024-01-01 to 2024-01-31 (31 days) |",
		"| Most Common Payment | Credit Card |",
		"Input rows: 10 | Output rows: 4 | Dropped: 6",
		"| fare_range | 4 | 4 |",
		"| tip_amount | 1 | 25.00% |",
		"| 1 | Midtown Center | 2 |",
	}
	for _, c := range checks {
		if !strings.Contains(md, c) {
			t.Errorf("Markdown missing %q", c)
		}
	}
}

func TestRenderMarkdown_CachedDatasetHasNoCleaningSection(t *testing.T) {
	r, err := NewGenerator(nil, nil).Generate(testFrame(), "2024-01", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if strings.Contains(RenderMarkdown(r), "## Cleaning Steps") {
		t.Error("cleaning section should be omitted")
	}
}

func TestRenderStatsCSV(t *testing.T) {
	stats := []analytics.ColumnStats{
		{Column: "fare_amount", Summary: analytics.Summary{
			Count: 2, Mean: 15, Std: 7.0710678, Min: 10, Q25: 12.5, Median: 15, Q75: 17.5, Max: 20,
		}},
		{Column: "trip_speed_mph", Summary: analytics.Summary{
			Mean:   analytics.Value(math.NaN()),
			Std:    analytics.Value(math.NaN()),
			Min:    analytics.Value(math.NaN()),
			Q25:    analytics.Value(math.NaN()),
			Median: analytics.Value(math.NaN()),
			Q75:    analytics.Value(math.NaN()),
			Max:    analytics.Value(math.NaN()),
		}},
	}

	lines := strings.Split(strings.TrimSpace(RenderStatsCSV(stats)), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "column,count,mean,std,min,25%,50%,75%,max" {
		t.Errorf("header %q", lines[0])
	}
	if lines[1] != "fare_amount,2,15.000000,7.071068,10.000000,12.500000,15.000000,17.500000,20.000000" {
		t.Errorf("row %q", lines[1])
	}
	if lines[2] != "trip_speed_mph,0,,,,,,," {
		t.Errorf("null row %q", lines[2])
	}
}

func TestWrite(t *testing.T) {
	r, err := NewGenerator(nil, nil).WithClock(fixedClock).Generate(testFrame(), "2024-01", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "reports")

	mdPath, csvPath, err := Write(dir, r)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Base(mdPath) != MarkdownFile || filepath.Base(csvPath) != StatsCSVFile {
		t.Errorf("paths %s %s", mdPath, csvPath)
	}

	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(md) != RenderMarkdown(r) {
		t.Error("markdown file differs from render")
	}
	csv, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(csv), "column,count,") {
		t.Errorf("csv %q", csv)
	}
}
