package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func healthy(context.Context) Check   { return Check{Status: StatusHealthy} }
func degraded(context.Context) Check  { return Check{Status: StatusDegraded} }
func unhealthy(context.Context) Check { return Check{Status: StatusUnhealthy} }

func TestHealthChecker_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks []CheckFunc
		want   Status
	}{
		{"No checks", nil, StatusHealthy},
		{"All healthy", []CheckFunc{healthy, healthy}, StatusHealthy},
		{"One degraded", []CheckFunc{healthy, degraded}, StatusDegraded},
		{"Unhealthy beats degraded", []CheckFunc{degraded, unhealthy, healthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for i, c := range tt.checks {
				hc.RegisterReadinessCheck(string(rune('a'+i)), c)
			}
			if got := hc.CheckReadiness(context.Background()).Status; got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestHealthChecker_CheckCombines(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterReadinessCheck("store", healthy)
	hc.RegisterLivenessCheck("memory", healthy)

	resp := hc.Check(context.Background())
	if len(resp.Checks) != 2 {
		t.Fatalf("Expected 2 checks, got %d", len(resp.Checks))
	}
	if resp.Checks["store"].Name != "store" {
		t.Errorf("Expected check name filled in, got %+v", resp.Checks["store"])
	}
	if resp.UptimeSeconds < 0 {
		t.Error("Uptime must not be negative")
	}
}

func TestGraphStoreCheck(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	counts := func(context.Context) (int64, int64, error) { return 7, 6, nil }

	check := GraphStoreCheck(ok, counts)(context.Background())
	if check.Status != StatusHealthy || check.Details["nodes"] != int64(7) {
		t.Errorf("Unexpected check %+v", check)
	}

	check = GraphStoreCheck(down, counts)(context.Background())
	if check.Status != StatusUnhealthy || check.Message != "connection refused" {
		t.Errorf("Unexpected check %+v", check)
	}

	failing := func(context.Context) (int64, int64, error) { return 0, 0, errors.New("timeout") }
	if check := GraphStoreCheck(ok, failing)(context.Background()); check.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", check.Status)
	}
}

func TestQueueCheck(t *testing.T) {
	if c := QueueCheck(func() int { return 1 }, 4)(context.Background()); c.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", c.Status)
	}
	if c := QueueCheck(func() int { return 4 }, 4)(context.Background()); c.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", c.Status)
	}
}

func TestMemoryCheck(t *testing.T) {
	c := MemoryCheck()(context.Background())
	if _, ok := c.Details["alloc_bytes"]; !ok {
		t.Errorf("Expected alloc_bytes, got %+v", c.Details)
	}
}

func TestHandlers(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterLivenessCheck("memory", healthy)
	hc.RegisterReadinessCheck("queue", degraded)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{"Health tolerates degraded", hc.HTTPHandler(), http.StatusOK},
		{"Readiness requires healthy", hc.ReadinessHandler(), http.StatusServiceUnavailable},
		{"Liveness", hc.LivenessHandler(), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.handler(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rr.Code)
			}
			var resp Response
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
		})
	}
}

func TestHTTPHandler_Unhealthy(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterReadinessCheck("store", unhealthy)

	rr := httptest.NewRecorder()
	hc.HTTPHandler()(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rr.Code)
	}
}
