package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"

	"nyc-taxi-lab/internal/analytics"
	"nyc-taxi-lab/internal/cleaning"
	"nyc-taxi-lab/internal/zones"
)

// Generator produces reports from the clean dataset.
type Generator struct {
	lookup      *zones.Lookup
	statsColumn []string
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator. lookup may be nil, in which case
// the zone ranking is left out. Empty statsColumns means the default set.
func NewGenerator(lookup *zones.Lookup, statsColumns []string) *Generator {
	return &Generator{
		lookup:      lookup,
		statsColumn: statsColumns,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate computes the report for df. clean is the build report, or nil.
func (g *Generator) Generate(df dataframe.DataFrame, month string, clean *cleaning.Report) (*Report, error) {
	ov, err := analytics.BuildOverview(df)
	if err != nil {
		return nil, err
	}
	if len(g.statsColumn) > 0 {
		if ov.Stats, err = analytics.Describe(df, g.statsColumn); err != nil {
			return nil, err
		}
	}

	all := analytics.All(df)
	r := &Report{
		GeneratedAt: g.now(),
		Month:       month,
		Metrics:     analytics.ComputeKeyMetrics(all),
		Overview:    ov,
		Cleaning:    clean,
	}
	if g.lookup != nil {
		top := analytics.TopPickupZones(all, g.lookup, analytics.TopZonesLimit)
		// Chart order is ascending; the report lists busiest first.
		for i := len(top) - 1; i >= 0; i-- {
			r.TopZones = append(r.TopZones, top[i])
		}
	}
	return r, nil
}

// Write renders r into dir as MarkdownFile and StatsCSVFile.
func Write(dir string, r *Report) (mdPath, csvPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create report dir: %w", err)
	}
	mdPath = filepath.Join(dir, MarkdownFile)
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(r)), 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", MarkdownFile, err)
	}
	csvPath = filepath.Join(dir, StatsCSVFile)
	if err := os.WriteFile(csvPath, []byte(RenderStatsCSV(r.Overview.Stats)), 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", StatsCSVFile, err)
	}
	return mdPath, csvPath, nil
}
