package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/cluso-commgraph/pkg/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func TestBodySizeLimit(t *testing.T) {
	handler := BodySizeLimit(10)(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this body is too large")))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", rr.Code)
	}
}

func TestPanicRecovery(t *testing.T) {
	logger := logging.NewRecorder()
	handler := PanicRecovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("secret internal detail")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "secret") {
		t.Error("Panic value leaked to the client")
	}
	entries := logger.Messages("panic in http handler")
	if len(entries) != 1 || entries[0].Fields["panic"] != "secret internal detail" {
		t.Errorf("Expected the panic to be logged, got %+v", entries)
	}
}

func TestLogging_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		want   logging.Level
	}{
		{http.StatusOK, logging.InfoLevel},
		{http.StatusNotFound, logging.WarnLevel},
		{http.StatusInternalServerError, logging.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			logger := logging.NewRecorder()
			handler := RequestID()(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/graph/full", nil))

			entries := logger.Messages("http request")
			if len(entries) != 1 {
				t.Fatalf("Expected 1 entry, got %d", len(entries))
			}
			e := entries[0]
			if e.Level != tt.want || e.Fields["status"] != tt.status || e.Fields["request_id"] == nil {
				t.Errorf("Unexpected entry %+v", e)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rr.Header().Get(RequestIDHeader) != seen {
		t.Errorf("Expected generated id echoed, got %q / %q", seen, rr.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123<script>")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123script" {
		t.Errorf("Expected sanitized id, got %q", seen)
	}

	if GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil)) != "" {
		t.Error("Expected empty id without middleware")
	}
}

func TestSanitizeRequestID(t *testing.T) {
	long := strings.Repeat("a", 100)
	if got := sanitizeRequestID(long); len(got) != maxRequestIDLen {
		t.Errorf("Expected %d chars, got %d", maxRequestIDLen, len(got))
	}
	if got := sanitizeRequestID("a b\nc"); got != "abc" {
		t.Errorf("Expected abc, got %q", got)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(DefaultCORSConfig("http://localhost:3000"))(okHandler())

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantAllow  string
	}{
		{"Allowed origin", http.MethodGet, "http://localhost:3000", false, http.StatusOK, "http://localhost:3000"},
		{"Other origin", http.MethodGet, "http://evil.example", false, http.StatusOK, ""},
		{"Preflight allowed", http.MethodOptions, "http://localhost:3000", true, http.StatusNoContent, "http://localhost:3000"},
		{"Preflight refused", http.MethodOptions, "http://evil.example", true, http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/graph/full", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Expected Allow-Origin %q, got %q", tt.wantAllow, got)
			}
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	handler := CORS(DefaultCORSConfig("*"))(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://anything.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "http://anything.example" {
		t.Errorf("Expected origin reflected, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

type fakeRecorder struct {
	inFlight int64
	path     string
	status   string
}

func (f *fakeRecorder) RecordHTTPRequest(method, path, status string, _ time.Duration) {
	f.path, f.status = path, status
}
func (f *fakeRecorder) IncHTTPRequestsInFlight() { atomic.AddInt64(&f.inFlight, 1) }
func (f *fakeRecorder) DecHTTPRequestsInFlight() { atomic.AddInt64(&f.inFlight, -1) }

func TestMetrics_UsesRoutePattern(t *testing.T) {
	rec := &fakeRecorder{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/workbench/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt64(&rec.inFlight) != 1 {
			t.Error("Expected one request in flight")
		}
		w.WriteHeader(http.StatusAccepted)
	})
	handler := Metrics(rec)(mux)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/workbench/jobs/1234", nil))

	if rec.path != "GET /api/v1/workbench/jobs/{id}" || rec.status != "202" {
		t.Errorf("Unexpected labels %q %q", rec.path, rec.status)
	}
	if rec.inFlight != 0 {
		t.Errorf("Expected in-flight back to 0, got %d", rec.inFlight)
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	if rec.path != "unmatched" {
		t.Errorf("Expected unmatched, got %q", rec.path)
	}
}

func TestMetrics_NilRecorder(t *testing.T) {
	rr := httptest.NewRecorder()
	Metrics(nil)(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rr.Code)
	}
}
