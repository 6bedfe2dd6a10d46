package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"nyc-taxi-lab/internal/analytics"
	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/reporting"
	"nyc-taxi-lab/internal/upload"
)

// Chart names served under /api/charts/{name}.
const (
	ChartTopPickupZones = "top-pickup-zones"
	ChartFareByHour     = "fare-by-hour"
	ChartDistance       = "distance"
	ChartPayments       = "payments"
	ChartHeatmap        = "heatmap"
)

// EmptySelectionMessage accompanies an empty filter result.
const EmptySelectionMessage = "No trips match the selected filters. Widen the date range, hours or payment types."

// formError is a malformed query parameter or form field.
type formError struct {
	field string
	err   error
}

func (e *formError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.field, e.err)
}

func (e *formError) Unwrap() error {
	return e.err
}

// HealthResponse is the body of /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Loaded   bool   `json:"dataset_loaded"`
	FromDisk bool   `json:"from_cache"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded, fromDisk := s.dataset.Loaded()
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Loaded: loaded, FromDisk: fromDisk})
}

// SelectionInfo describes the rows a filter matched.
type SelectionInfo struct {
	Filter   analytics.Filter `json:"filter"`
	Selected int              `json:"selected"`
	Total    int              `json:"total"`
	Share    float64          `json:"share_pct"`
	Empty    bool             `json:"empty"`
	Message  string           `json:"message,omitempty"`
}

func newSelectionInfo(f analytics.Filter, sel *analytics.Selection) SelectionInfo {
	info := SelectionInfo{
		Filter:   f,
		Selected: sel.Len(),
		Total:    sel.Total(),
		Share:    sel.Share(),
		Empty:    sel.Empty(),
	}
	if info.Empty {
		info.Message = EmptySelectionMessage
	}
	return info
}

// SummaryResponse is the body of /api/summary.
type SummaryResponse struct {
	SelectionInfo
	Metrics *analytics.KeyMetrics `json:"metrics,omitempty"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, sel, err := s.selection(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := SummaryResponse{SelectionInfo: newSelectionInfo(f, sel)}
	if !sel.Empty() {
		m := analytics.ComputeKeyMetrics(sel)
		resp.Metrics = &m
	}
	writeJSON(w, http.StatusOK, resp)
}

// FiltersResponse lists the filter controls and their defaults.
type FiltersResponse struct {
	MinDate  string   `json:"min_date,omitempty"`
	MaxDate  string   `json:"max_date,omitempty"`
	HourMin  int      `json:"hour_min"`
	HourMax  int      `json:"hour_max"`
	Payments []string `json:"payments"`
	Charts   []string `json:"charts"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	df, err := s.dataset.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	f := analytics.DefaultFilter(df)
	resp := FiltersResponse{
		HourMin:  f.HourMin,
		HourMax:  f.HourMax,
		Payments: f.Payments,
		Charts:   []string{ChartTopPickupZones, ChartFareByHour, ChartDistance, ChartPayments, ChartHeatmap},
	}
	if !f.Start.IsZero() {
		resp.MinDate = f.Start.Format(domain.DateLayout)
		resp.MaxDate = f.End.Format(domain.DateLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChartResponse is the body of /api/charts/{name}. Data is omitted for an
// empty selection.
type ChartResponse struct {
	Chart string `json:"chart"`
	SelectionInfo
	Data any `json:"data,omitempty"`
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	switch name {
	case ChartTopPickupZones, ChartFareByHour, ChartDistance, ChartPayments, ChartHeatmap:
	default:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("unknown chart %q", name)})
		return
	}

	f, sel, err := s.selection(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := ChartResponse{Chart: name, SelectionInfo: newSelectionInfo(f, sel)}
	if sel.Empty() {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	switch name {
	case ChartTopPickupZones:
		lookup, err := s.zoneLookup(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Data = analytics.TopPickupZones(sel, lookup, analytics.TopZonesLimit)
	case ChartFareByHour:
		resp.Data = analytics.FareByHour(sel)
	case ChartDistance:
		resp.Data = analytics.DistanceHistogram(sel)
	case ChartPayments:
		resp.Data = analytics.PaymentBreakdown(sel)
	case ChartHeatmap:
		resp.Data = analytics.DayHourHeatmap(sel)
	}
	writeJSON(w, http.StatusOK, resp)
}

// selection loads the frame and applies the filter in the query string.
func (s *Server) selection(r *http.Request) (analytics.Filter, *analytics.Selection, error) {
	df, err := s.dataset.Get(r.Context())
	if err != nil {
		return analytics.Filter{}, nil, err
	}
	f, err := parseFilter(r.URL.Query(), df)
	if err != nil {
		return analytics.Filter{}, nil, err
	}
	sel, err := analytics.Apply(df, f)
	if err != nil {
		return analytics.Filter{}, nil, err
	}
	return f, sel, nil
}

// parseFilter overlays query parameters on the default filter of df.
// A payment key with only empty values selects no payment types.
func parseFilter(q url.Values, df dataframe.DataFrame) (analytics.Filter, error) {
	f := analytics.DefaultFilter(df)

	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"start", &f.Start}, {"end", &f.End}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		t, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return f, &formError{field: p.key, err: err}
		}
		*p.dst = t
	}

	for _, p := range []struct {
		key string
		dst *int
	}{{"hour_min", &f.HourMin}, {"hour_max", &f.HourMax}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, &formError{field: p.key, err: err}
		}
		*p.dst = n
	}

	if vals, ok := q["payment"]; ok {
		f.Payments = nil
		for _, v := range vals {
			if v = strings.TrimSpace(v); v != "" {
				f.Payments = append(f.Payments, v)
			}
		}
	}
	return f, nil
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	df, err := s.dataset.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	ov, err := analytics.BuildOverview(df)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// StatsResponse is the body of /api/overview/stats.
type StatsResponse struct {
	Available []string                `json:"available"`
	Stats     []analytics.ColumnStats `json:"stats"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	df, err := s.dataset.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	cols := splitList(r.URL.Query().Get("cols"))
	if len(cols) == 0 {
		cols = s.stats
	}
	if len(cols) == 0 {
		cols = analytics.Present(df, analytics.DefaultStatsColumns)
	}
	stats, err := analytics.Describe(df, cols)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+reporting.StatsCSVFile+`"`)
		_, _ = w.Write([]byte(reporting.RenderStatsCSV(stats)))
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Available: analytics.NumericColumns(df), Stats: stats})
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	df, err := s.dataset.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	n := analytics.DefaultSampleRows
	if v := r.URL.Query().Get("rows"); v != "" {
		if n, err = strconv.Atoi(v); err != nil {
			s.writeError(w, &formError{field: "rows", err: err})
			return
		}
	}
	cols := splitList(r.URL.Query().Get("cols"))
	if len(cols) == 0 {
		cols = analytics.Present(df, analytics.DefaultSampleColumns)
	}
	t, err := analytics.Sample(df, cols, n)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UploadPreviewResponse is the body of /api/upload/preview.
type UploadPreviewResponse struct {
	Name           string        `json:"name"`
	Rows           int           `json:"rows"`
	Columns        int           `json:"columns"`
	ColumnNames    []string      `json:"column_names"`
	NumericColumns []string      `json:"numeric_columns"`
	DefaultX       string        `json:"default_x"`
	DefaultY       string        `json:"default_y"`
	Kinds          []upload.Kind `json:"kinds"`
	Preview        upload.Table  `json:"preview"`
	Describe       upload.Table  `json:"describe"`
}

func (s *Server) handleUploadPreview(w http.ResponseWriter, r *http.Request) {
	d, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rows, cols := d.Shape()
	x, y := d.DefaultAxes()
	writeJSON(w, http.StatusOK, UploadPreviewResponse{
		Name:           d.Name,
		Rows:           rows,
		Columns:        cols,
		ColumnNames:    d.Columns(),
		NumericColumns: d.NumericColumns(),
		DefaultX:       x,
		DefaultY:       y,
		Kinds:          upload.Kinds,
		Preview:        d.Preview(),
		Describe:       d.Describe(),
	})
}

func (s *Server) handleUploadChart(w http.ResponseWriter, r *http.Request) {
	d, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	kind := upload.Kind(r.FormValue("kind"))
	if kind == "" {
		kind = upload.Bar
	}
	ch, err := d.BuildChart(upload.ChartRequest{
		Kind:  kind,
		X:     r.FormValue("x"),
		Y:     r.FormValue("y"),
		Color: r.FormValue("color"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	d, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="uploaded_data.csv"`)
	if err := d.WriteCSV(w); err != nil {
		s.logger.WithError(err).Warn("write uploaded csv")
	}
}

// readUpload parses the multipart file field "file".
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload.Dataset, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, uploadFormError(err)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, &formError{field: "file", err: err}
	}
	defer file.Close()

	d, err := upload.Parse(file, hdr.Filename)
	if err != nil {
		return nil, &formError{field: "file", err: err}
	}
	return d, nil
}

func uploadFormError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return err
	}
	return &formError{field: "upload", err: err}
}

// ReloadResponse is the body of /api/admin/reload.
type ReloadResponse struct {
	Rows     int  `json:"rows"`
	Columns  int  `json:"columns"`
	FromDisk bool `json:"from_cache"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.lookup = nil
	s.mu.Unlock()

	df, err := s.dataset.Reload(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	_, fromDisk := s.dataset.Loaded()
	s.logger.WithField("rows", df.Nrow()).Info("dataset reloaded")
	writeJSON(w, http.StatusOK, ReloadResponse{Rows: df.Nrow(), Columns: df.Ncol(), FromDisk: fromDisk})
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
