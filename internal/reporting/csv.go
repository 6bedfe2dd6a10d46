package reporting

import (
	"fmt"
	"strings"

	"nyc-taxi-lab/internal/analytics"
)

// RenderStatsCSV renders describe output as CSV, one row per column. Null
// statistics are empty cells.
func RenderStatsCSV(stats []analytics.ColumnStats) string {
	var sb strings.Builder

	// Header
	sb.WriteString("column,count,mean,std,min,25%,50%,75%,max\n")

	// Rows
	for _, s := range stats {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%s,%s,%s,%s,%s,%s\n",
			s.Column,
			s.Count,
			num(s.Mean, 6),
			num(s.Std, 6),
			num(s.Min, 6),
			num(s.Q25, 6),
			num(s.Median, 6),
			num(s.Q75, 6),
			num(s.Max, 6),
		))
	}

	return sb.String()
}

// num formats v with prec decimals, or "" when it is null.
func num(v analytics.Value, prec int) string {
	if v.IsNaN() {
		return ""
	}
	return fmt.Sprintf("%.*f", prec, float64(v))
}
