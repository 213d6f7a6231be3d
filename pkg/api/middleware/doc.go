// Package middleware provides the HTTP middleware of the commgraph API.
//
// Every middleware has the shape func(http.Handler) http.Handler so they
// chain outermost-first:
//
//	handler := middleware.PanicRecovery(logger)(mux)
//	handler = middleware.Logging(logger)(handler)
//	handler = middleware.RequestID()(handler)
package middleware
