// Package api is the HTTP surface of commgraph: token issue, the graph
// queries, listing-set import and visualisation, job status and GraphQL.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-commgraph/pkg/api/middleware"
	"github.com/dd0wney/cluso-commgraph/pkg/auth"
	"github.com/dd0wney/cluso-commgraph/pkg/health"
	"github.com/dd0wney/cluso-commgraph/pkg/ingest"
	"github.com/dd0wney/cluso-commgraph/pkg/jobs"
	"github.com/dd0wney/cluso-commgraph/pkg/listings"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/metrics"
	"github.com/dd0wney/cluso-commgraph/pkg/query"
)

// DefaultMaxUploadBytes caps a CSV import.
const DefaultMaxUploadBytes = 32 << 20

// Archiver stores the raw bytes of an upload.
type Archiver interface {
	Archive(ctx context.Context, listingSetID string, body []byte) (string, error)
}

// Deps are the collaborators the server routes to. Archive, GraphQL and
// Health are optional.
type Deps struct {
	Queries   *query.Engine
	Pipeline  *ingest.Pipeline
	Listings  *listings.Registry
	Jobs      *jobs.Tracker
	Directory *auth.Directory
	Tokens    *auth.JWTManager
	Archive   Archiver
	GraphQL   http.Handler
	Health    *health.HealthChecker
	Metrics   *metrics.Registry
	Logger    logging.Logger

	CORSOrigins    []string
	MaxUploadBytes int64
}

// Server represents the HTTP API server
type Server struct {
	Deps
	logger    logging.Logger
	startTime time.Time
}

// NewServer checks that the required collaborators are present.
func NewServer(d Deps) (*Server, error) {
	switch {
	case d.Queries == nil:
		return nil, errors.New("api: query engine is required")
	case d.Pipeline == nil:
		return nil, errors.New("api: ingestion pipeline is required")
	case d.Listings == nil:
		return nil, errors.New("api: listing-set registry is required")
	case d.Jobs == nil:
		return nil, errors.New("api: job tracker is required")
	case d.Directory == nil || d.Tokens == nil:
		return nil, errors.New("api: user directory and token manager are required")
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if d.Health == nil {
		d.Health = health.NewHealthChecker()
	}

	return &Server{
		Deps:      d,
		logger:    logging.OrNop(d.Logger).With(logging.Component("api")),
		startTime: time.Now(),
	}, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleWelcome)
	mux.Handle("GET /health", s.Health.HTTPHandler())
	mux.Handle("GET /health/live", s.Health.LivenessHandler())
	mux.Handle("GET /health/ready", s.Health.ReadinessHandler())
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	mux.HandleFunc("POST /api/v1/auth/token", s.handleToken)
	mux.HandleFunc("POST /api/v1/auth/logout", s.requireAuth(s.handleLogout))

	mux.HandleFunc("GET /api/v1/users/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("GET /api/v1/users", s.requireAdmin(s.handleListUsers))
	mux.HandleFunc("POST /api/v1/users", s.requireAdmin(s.handleCreateUser))

	mux.HandleFunc("GET /api/v1/graph/full", s.requireAuth(s.handleFullGraph))
	mux.HandleFunc("GET /api/v1/graph/search", s.requireAuth(s.handleSearch))
	mux.HandleFunc("GET /api/v1/graph/shortest-path", s.requireAuth(s.handleShortestPath))

	mux.Handle("POST /api/v1/workbench/listings/import",
		middleware.BodySizeLimit(s.MaxUploadBytes)(s.requireAuth(s.handleImport)))
	mux.HandleFunc("GET /api/v1/workbench/listings", s.requireAuth(s.handleListListingSets))
	mux.HandleFunc("POST /api/v1/workbench/visualize", s.requireAuth(s.handleVisualize))
	mux.HandleFunc("GET /api/v1/workbench/jobs", s.requireAuth(s.handleListJobs))
	mux.HandleFunc("GET /api/v1/workbench/jobs/{id}", s.requireAuth(s.handleGetJob))

	if s.GraphQL != nil {
		mux.HandleFunc("POST /graphql", s.requireAuth(s.GraphQL.ServeHTTP))
	}

	// Metrics sits directly on the mux so it can read the matched pattern.
	var handler http.Handler = mux
	if s.Metrics != nil {
		handler = middleware.Metrics(s.Metrics)(handler)
	}
	handler = middleware.CORS(middleware.DefaultCORSConfig(s.CORSOrigins...))(handler)
	handler = middleware.PanicRecovery(s.Logger)(handler)
	handler = middleware.Logging(s.Logger)(handler)
	handler = middleware.RequestID()(handler)
	return handler
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, WelcomeResponse{
		Message: "Welcome to the communications graph API",
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}
