// Package cache persists the clean dataset and short-circuits rebuilding it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	log "github.com/sirupsen/logrus"

	"nyc-taxi-lab/internal/observability"
	"nyc-taxi-lab/internal/parquetio"
)

// ErrNotInitialized is returned when the artifact is absent and no builder
// is available to create it.
var ErrNotInitialized = errors.New("clean dataset not initialized: run prepare first")

// Builder produces the clean dataset when no valid artifact exists.
type Builder func(ctx context.Context) (dataframe.DataFrame, error)

// Validity decides whether the artifact at path can be served as is.
type Validity interface {
	Valid(path string) (bool, error)
}

// Existence treats any file at the path as valid. Content and age are not
// inspected, so a changed raw source is never noticed.
type Existence struct{}

// Valid implements Validity.
func (Existence) Valid(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat artifact: %w", err)
	}
	return !info.IsDir(), nil
}

// Store loads and persists the artifact at a fixed path.
type Store struct {
	path     string
	validity Validity
	logger   log.FieldLogger
	metrics  *observability.Metrics
}

// Options configures a Store.
type Options struct {
	Path     string
	Validity Validity // defaults to Existence
	Logger   log.FieldLogger
	Metrics  *observability.Metrics
}

// NewStore creates a Store.
func NewStore(opts Options) *Store {
	s := &Store{
		path:     opts.Path,
		validity: opts.Validity,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if s.validity == nil {
		s.validity = Existence{}
	}
	if s.logger == nil {
		s.logger = log.StandardLogger()
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultMetrics
	}
	return s
}

// Path returns the artifact location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the artifact. It returns ErrNotInitialized when the validity
// check fails.
func (s *Store) Load(ctx context.Context) (dataframe.DataFrame, error) {
	ok, err := s.validity.Valid(s.path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if !ok {
		return dataframe.DataFrame{}, ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return dataframe.DataFrame{}, err
	}

	df, err := parquetio.ReadAll(s.path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read artifact: %w", err)
	}
	return df, nil
}

// LoadOrBuild returns the artifact when it is valid without calling build.
// Otherwise it calls build, persists the result and returns it. The second
// return value reports whether the artifact was served from disk.
func (s *Store) LoadOrBuild(ctx context.Context, build Builder) (dataframe.DataFrame, bool, error) {
	df, err := s.Load(ctx)
	if err == nil {
		s.metrics.RecordCacheHit()
		s.logger.WithField("path", s.path).Debug("serving cached artifact")
		return df, true, nil
	}
	if !errors.Is(err, ErrNotInitialized) {
		return dataframe.DataFrame{}, false, err
	}
	s.metrics.RecordCacheMiss()

	if build == nil {
		return dataframe.DataFrame{}, false, ErrNotInitialized
	}

	s.logger.WithField("path", s.path).Info("artifact missing, building")
	df, err = build(ctx)
	if err != nil {
		return dataframe.DataFrame{}, false, fmt.Errorf("build artifact: %w", err)
	}
	if err := s.Save(df); err != nil {
		return dataframe.DataFrame{}, false, err
	}
	return df, false, nil
}

// Save writes df to a temporary file next to the artifact and renames it
// into place, so readers never see a partial file.
func (s *Store) Save(df dataframe.DataFrame) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if err := parquetio.WriteFrame(tmp, df); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}
	committed = true

	s.logger.WithFields(log.Fields{
		"path": s.path,
		"rows": df.Nrow(),
		"cols": df.Ncol(),
	}).Info("artifact written")
	return nil
}
