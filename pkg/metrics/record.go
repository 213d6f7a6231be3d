package metrics

import "time"

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAuthFailure counts a rejected credential or token.
func (r *Registry) RecordAuthFailure(reason string) {
	r.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordQuery records a query execution and the size of its result.
func (r *Registry) RecordQuery(queryType, status string, duration time.Duration, nodes, edges int) {
	r.QueriesTotal.WithLabelValues(queryType, status).Inc()
	r.QueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
	if status == "success" {
		r.QueryResultNodes.WithLabelValues(queryType).Observe(float64(nodes))
		r.QueryResultEdges.WithLabelValues(queryType).Observe(float64(edges))
	}
}

// RecordIngestRow counts one row outcome.
func (r *Registry) RecordIngestRow(outcome string) {
	r.IngestRowsTotal.WithLabelValues(outcome).Inc()
}

// RecordJobState counts a job entering state and tracks how many are pending.
func (r *Registry) RecordJobState(state string) {
	r.IngestJobsTotal.WithLabelValues(state).Inc()
	switch state {
	case "queued":
		r.IngestJobsQueue.Inc()
	case "completed", "failed":
		r.IngestJobsQueue.Dec()
	}
}

// SetStoreCounts updates the store size gauges.
func (r *Registry) SetStoreCounts(nodes, edges int64) {
	r.StoreNodesTotal.Set(float64(nodes))
	r.StoreEdgesTotal.Set(float64(edges))
}

// IncHTTPRequestsInFlight marks a request as started.
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks a request as finished.
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}
