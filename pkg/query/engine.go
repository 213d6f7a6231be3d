// Package query runs the four traversal contracts against a graph store and
// materializes their results.
package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/materialize"
	"github.com/dd0wney/cluso-commgraph/pkg/metrics"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

// Query types, used as metric and log labels.
const (
	TypeFull         = "full"
	TypeNeighborhood = "neighborhood"
	TypeShortestPath = "shortest_path"
	TypeOwned        = "owned_subgraph"
)

// Engine executes queries. Each call opens and closes its own session.
type Engine struct {
	store   graphstore.Store
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewEngine creates an engine. logger and reg may be nil.
func NewEngine(store graphstore.Store, logger logging.Logger, reg *metrics.Registry) *Engine {
	return &Engine{
		store:   store,
		logger:  logging.OrNop(logger).With(logging.Component("query")),
		metrics: reg,
	}
}

// Full returns every relationship in the store with its endpoints. An empty
// store is an empty graph.
func (e *Engine) Full(ctx context.Context) (schema.Graph, error) {
	return e.run(ctx, TypeFull, false, func(s graphstore.Session) ([]graphstore.Path, error) {
		return s.FullPaths(ctx)
	})
}

// Neighborhood returns the subscriber with phone and everything one hop away.
// An unknown subscriber is schema.ErrNotFound.
func (e *Engine) Neighborhood(ctx context.Context, phone string) (schema.Graph, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return schema.EmptyGraph(), &schema.ValidationError{Field: "phone_number", Reason: "must not be empty"}
	}
	return e.run(ctx, TypeNeighborhood, true, func(s graphstore.Session) ([]graphstore.Path, error) {
		return s.NeighborhoodPaths(ctx, phone)
	})
}

// ShortestPath returns every shortest path between two subscribers in either
// direction. No path, or an unknown endpoint, is schema.ErrNotFound.
func (e *Engine) ShortestPath(ctx context.Context, startPhone, endPhone string) (schema.Graph, error) {
	startPhone, endPhone = strings.TrimSpace(startPhone), strings.TrimSpace(endPhone)
	if startPhone == "" {
		return schema.EmptyGraph(), &schema.ValidationError{Field: "start_phone", Reason: "must not be empty"}
	}
	if endPhone == "" {
		return schema.EmptyGraph(), &schema.ValidationError{Field: "end_phone", Reason: "must not be empty"}
	}
	return e.run(ctx, TypeShortestPath, true, func(s graphstore.Session) ([]graphstore.Path, error) {
		return s.ShortestPaths(ctx, startPhone, endPhone)
	})
}

// OwnedSubgraph returns the subgraph around the communications of the listing
// sets owner owns among listingSetIDs. Sets owned by someone else are dropped
// silently, so the result for a foreign id matches that for an unknown id:
// an empty graph.
func (e *Engine) OwnedSubgraph(ctx context.Context, owner string, listingSetIDs []string) (schema.Graph, error) {
	ids := dedupe(listingSetIDs)
	if owner == "" || len(ids) == 0 {
		e.record(TypeOwned, "success", 0, schema.EmptyGraph())
		return schema.EmptyGraph(), nil
	}
	return e.run(ctx, TypeOwned, false, func(s graphstore.Session) ([]graphstore.Path, error) {
		return s.OwnedPaths(ctx, owner, ids)
	})
}

// run executes fetch in a fresh session. With emptyIsNotFound, a result with
// no paths becomes schema.ErrNotFound.
func (e *Engine) run(ctx context.Context, queryType string, emptyIsNotFound bool, fetch func(graphstore.Session) ([]graphstore.Path, error)) (schema.Graph, error) {
	start := time.Now()

	var paths []graphstore.Path
	err := graphstore.WithSession(ctx, e.store, func(s graphstore.Session) error {
		var err error
		paths, err = fetch(s)
		return err
	})
	if err != nil {
		e.logger.Error("query failed", logging.QueryType(queryType), logging.Error(err))
		e.record(queryType, "error", time.Since(start), schema.Graph{})
		return schema.EmptyGraph(), err
	}

	if len(paths) == 0 && emptyIsNotFound {
		e.record(queryType, "not_found", time.Since(start), schema.Graph{})
		return schema.EmptyGraph(), schema.ErrNotFound
	}

	g := materialize.Materialize(paths)
	e.record(queryType, "success", time.Since(start), g)
	e.logger.Debug("query completed",
		logging.QueryType(queryType),
		logging.Int("paths", len(paths)),
		logging.Int("nodes", len(g.Nodes)),
		logging.Int("edges", len(g.Edges)),
		logging.Latency(time.Since(start)))
	return g, nil
}

func (e *Engine) record(queryType, status string, d time.Duration, g schema.Graph) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordQuery(queryType, status, d, len(g.Nodes), len(g.Edges))
}

// IsNotFound reports whether err is the query engine's not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, schema.ErrNotFound)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
