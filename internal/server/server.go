// Package server exposes the dashboard over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	log "github.com/sirupsen/logrus"

	"nyc-taxi-lab/internal/analytics"
	"nyc-taxi-lab/internal/cache"
	"nyc-taxi-lab/internal/observability"
	"nyc-taxi-lab/internal/upload"
	"nyc-taxi-lab/internal/zones"
)

// DefaultMaxUploadBytes bounds an uploaded CSV.
const DefaultMaxUploadBytes = 200 << 20

// Dataset is the session handle serving the clean frame.
type Dataset interface {
	Get(ctx context.Context) (dataframe.DataFrame, error)
	Reload(ctx context.Context) (dataframe.DataFrame, error)
	Loaded() (loaded, fromDisk bool)
}

// ZoneLoader loads the taxi zone lookup.
type ZoneLoader interface {
	LoadZones(ctx context.Context) (*zones.Lookup, error)
}

// Options for creating Server.
type Options struct {
	Dataset Dataset
	Zones   ZoneLoader

	MaxUploadBytes int64
	StatsColumns   []string

	Logger  log.FieldLogger
	Metrics *observability.Metrics
}

// Server answers dashboard requests.
type Server struct {
	dataset   Dataset
	zones     ZoneLoader
	maxUpload int64
	stats     []string
	logger    log.FieldLogger
	metrics   *observability.Metrics

	mu     sync.Mutex
	lookup *zones.Lookup
}

var _ Dataset = (*cache.Handle)(nil)

// New creates a new Server.
func New(opts Options) *Server {
	s := &Server{
		dataset:   opts.Dataset,
		zones:     opts.Zones,
		maxUpload: opts.MaxUploadBytes,
		stats:     opts.StatsColumns,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	if s.logger == nil {
		s.logger = log.StandardLogger()
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultMetrics
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /api/health", s.handleHealth)
	s.route(mux, "GET /api/summary", s.handleSummary)
	s.route(mux, "GET /api/filters", s.handleFilters)
	s.route(mux, "GET /api/charts/{name}", s.handleChart)
	s.route(mux, "GET /api/overview", s.handleOverview)
	s.route(mux, "GET /api/overview/stats", s.handleStats)
	s.route(mux, "GET /api/overview/sample", s.handleSample)
	s.route(mux, "POST /api/upload/preview", s.handleUploadPreview)
	s.route(mux, "POST /api/upload/chart", s.handleUploadChart)
	s.route(mux, "POST /api/upload/csv", s.handleUploadCSV)
	s.route(mux, "POST /api/admin/reload", s.handleReload)

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	return mux
}

// NewHTTPServer wraps Handler with timeouts for addr.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}

// route registers h under pattern and records its latency and status.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		elapsed := time.Since(start)
		s.metrics.RecordHTTPRequest(pattern, rec.code, elapsed)
		s.logger.WithFields(log.Fields{
			"route":    pattern,
			"code":     rec.code,
			"duration": elapsed.Round(time.Microsecond),
		}).Debug("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// zoneLookup returns the memoized zone lookup.
func (s *Server) zoneLookup(ctx context.Context) (*zones.Lookup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookup != nil {
		return s.lookup, nil
	}
	l, err := s.zones.LoadZones(ctx)
	if err != nil {
		return nil, err
	}
	s.lookup = l
	return l, nil
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NotInitializedMessage is shown while the artifact is missing.
const NotInitializedMessage = "initialize data first"

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		code    int
		msg     = err.Error()
		render  *upload.RenderError
		tooBig  *http.MaxBytesError
		badForm *formError
	)
	switch {
	case errors.Is(err, cache.ErrNotInitialized):
		code, msg = http.StatusServiceUnavailable, NotInitializedMessage
	case errors.Is(err, analytics.ErrInvalidFilter),
		errors.Is(err, analytics.ErrUnknownColumn),
		errors.Is(err, analytics.ErrNotNumeric),
		errors.As(err, &badForm):
		code = http.StatusBadRequest
	case errors.As(err, &tooBig):
		code = http.StatusRequestEntityTooLarge
	case errors.As(err, &render):
		code = http.StatusUnprocessableEntity
	default:
		code = http.StatusInternalServerError
		s.logger.WithError(err).Error("request failed")
	}
	writeJSON(w, code, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
