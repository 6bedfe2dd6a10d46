// Package fetch downloads raw source files to local storage at most once.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"nyc-taxi-lab/internal/observability"
)

// DefaultChunkSize is the copy buffer size used when none is configured.
const DefaultChunkSize = 8192

// StatusError is returned for a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// Fetcher streams remote files to disk.
type Fetcher struct {
	client    *http.Client
	chunkSize int
	logger    log.FieldLogger
	metrics   *observability.Metrics
}

// Options configures a Fetcher.
type Options struct {
	Client    *http.Client
	ChunkSize int
	Timeout   time.Duration // used only when Client is nil
	Logger    log.FieldLogger
	Metrics   *observability.Metrics
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		client:    opts.Client,
		chunkSize: opts.ChunkSize,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: opts.Timeout}
	}
	if f.chunkSize <= 0 {
		f.chunkSize = DefaultChunkSize
	}
	if f.logger == nil {
		f.logger = log.StandardLogger()
	}
	if f.metrics == nil {
		f.metrics = observability.DefaultMetrics
	}
	return f
}

// EnsureLocal makes sure dest exists, downloading url to it if it does not.
// An existing file is never re-fetched or checked, including one left behind
// by an interrupted download.
func (f *Fetcher) EnsureLocal(ctx context.Context, url, dest string) error {
	logger := f.logger.WithFields(log.Fields{"url": url, "dest": dest})

	if _, err := os.Stat(dest); err == nil {
		logger.Debug("source already present")
		f.metrics.RecordDownload("skipped", 0)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", dest, err)
	}

	n, err := f.download(ctx, url, dest)
	if err != nil {
		f.metrics.RecordDownload("error", n)
		return err
	}

	f.metrics.RecordDownload("ok", n)
	logger.WithField("bytes", n).Info("source downloaded")
	return nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create parent dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}

	n, err := f.copy(out, resp.Body)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", dest, err)
	}
	return n, nil
}

// copy streams src to dst in chunks of at most chunkSize bytes.
func (f *Fetcher) copy(dst io.Writer, src io.Reader) (int64, error) {
	return io.CopyBuffer(onlyWriter{dst}, onlyReader{src}, make([]byte, f.chunkSize))
}

// onlyReader and onlyWriter hide ReaderFrom/WriterTo so CopyBuffer uses the
// configured buffer.
type onlyReader struct{ io.Reader }

type onlyWriter struct{ io.Writer }
