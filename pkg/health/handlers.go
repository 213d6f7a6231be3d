package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a whole round of checks.
const checkTimeout = 5 * time.Second

func respond(w http.ResponseWriter, response Response, strict bool) {
	w.Header().Set("Content-Type", "application/json")

	code := http.StatusOK
	if response.Status == StatusUnhealthy || (strict && response.Status != StatusHealthy) {
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}

// HTTPHandler serves every check. Degraded still answers 200.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()
		respond(w, hc.Check(ctx), false)
	}
}

// ReadinessHandler answers 200 only when every readiness check is healthy.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()
		respond(w, hc.CheckReadiness(ctx), true)
	}
}

// LivenessHandler answers 200 only when every liveness check is healthy.
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()
		respond(w, hc.CheckLiveness(ctx), true)
	}
}
