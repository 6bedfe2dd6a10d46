package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBuild(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordBuild("ok", 2*time.Second, 100, 60, map[string]int{"fare_range": 30, "drop_nulls": 10})

	if got := testutil.ToFloat64(m.RowsOut); got != 60 {
		t.Errorf("rows_out = %v", got)
	}
	if got := testutil.ToFloat64(m.RowsDropped.WithLabelValues("fare_range")); got != 30 {
		t.Errorf("rows_dropped{fare_range} = %v", got)
	}
	if got := testutil.ToFloat64(m.PipelineRunsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("runs_total{ok} = %v", got)
	}
}

func TestRecordBuild_FailureKeepsGauges(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordBuild("ok", time.Second, 10, 5, nil)
	m.RecordBuild("error", time.Second, 0, 0, nil)

	if got := testutil.ToFloat64(m.RowsOut); got != 5 {
		t.Errorf("rows_out = %v", got)
	}
	if got := testutil.ToFloat64(m.PipelineRunsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("runs_total{error} = %v", got)
	}
}

func TestRecordDownload(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordDownload("ok", 8192)
	m.RecordDownload("skipped", 0)

	if got := testutil.ToFloat64(m.DownloadedBytes); got != 8192 {
		t.Errorf("downloaded bytes = %v", got)
	}
	if got := testutil.ToFloat64(m.DownloadsTotal.WithLabelValues("skipped")); got != 1 {
		t.Errorf("downloads{skipped} = %v", got)
	}
}

func TestRecordCache(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	if got := testutil.ToFloat64(m.CacheHits); got != 2 {
		t.Errorf("hits = %v", got)
	}
	if got := testutil.ToFloat64(m.CacheMisses); got != 1 {
		t.Errorf("misses = %v", got)
	}
}
