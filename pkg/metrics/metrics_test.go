package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.HTTPRequestsTotal == nil || r.QueriesTotal == nil || r.IngestRowsTotal == nil || r.StoreNodesTotal == nil {
		t.Fatal("Metrics not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/api/v1/graph/full", "200", 100*time.Millisecond)
	r.RecordHTTPRequest("GET", "/api/v1/graph/full", "200", 10*time.Millisecond)
	r.RecordHTTPRequest("GET", "/api/v1/graph/search", "404", 5*time.Millisecond)

	if v := counterValue(t, r.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/graph/full", "200")); v != 2 {
		t.Errorf("Counter value = %v, want 2", v)
	}
	if v := counterValue(t, r.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/graph/search", "404")); v != 1 {
		t.Errorf("Counter value = %v, want 1", v)
	}
}

func TestRecordQuery(t *testing.T) {
	r := NewRegistry()
	r.RecordQuery("neighborhood", "success", time.Millisecond, 5, 4)
	r.RecordQuery("neighborhood", "not_found", time.Millisecond, 0, 0)

	if v := counterValue(t, r.QueriesTotal.WithLabelValues("neighborhood", "success")); v != 1 {
		t.Errorf("success = %v, want 1", v)
	}
	if v := counterValue(t, r.QueriesTotal.WithLabelValues("neighborhood", "not_found")); v != 1 {
		t.Errorf("not_found = %v, want 1", v)
	}

	var metric dto.Metric
	h := r.QueryResultNodes.WithLabelValues("neighborhood").(prometheus.Histogram)
	if err := h.Write(&metric); err != nil {
		t.Fatalf("Failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 || metric.Histogram.GetSampleSum() != 5 {
		t.Errorf("Expected one sample of 5 nodes, got count=%d sum=%v",
			metric.Histogram.GetSampleCount(), metric.Histogram.GetSampleSum())
	}
}

func TestRecordJobState(t *testing.T) {
	r := NewRegistry()
	r.RecordJobState("queued")
	r.RecordJobState("queued")
	r.RecordJobState("running")
	r.RecordJobState("completed")

	if v := gaugeValue(t, r.IngestJobsQueue); v != 1 {
		t.Errorf("pending = %v, want 1", v)
	}
	if v := counterValue(t, r.IngestJobsTotal.WithLabelValues("queued")); v != 2 {
		t.Errorf("queued = %v, want 2", v)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordIngestRow("skipped")
	r.SetStoreCounts(7, 6)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`commgraph_ingest_rows_total{outcome="skipped"} 1`,
		"commgraph_store_nodes_total 7",
		"commgraph_store_edges_total 6",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Exposition missing %q", want)
		}
	}
}
