// Package neo4jstore implements the graph store contracts as Cypher against
// Neo4j.
package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

// Config holds connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Store is a graphstore.Store backed by a Neo4j driver.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   logging.Logger
}

// Open connects, verifies connectivity and creates the uniqueness constraints
// the merge keys rely on.
func Open(ctx context.Context, cfg Config, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI, err)
	}

	s := &Store{driver: driver, database: cfg.Database, logger: logger.With(logging.Component("neo4jstore"))}
	if err := s.ensureConstraints(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	s.logger.Info("connected to neo4j", logging.String("uri", cfg.URI))
	return s, nil
}

func (s *Store) ensureConstraints(ctx context.Context) error {
	sess := s.newSession(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	for _, k := range schema.UniqueKeys {
		name := fmt.Sprintf("%s_%s_unique", k.Label, k.Property)
		cypher := fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE", name, k.Label, k.Property)
		_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, cypher, nil)
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to create constraint %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) newSession(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// Session opens a driver session. Reads and writes use managed transactions
// so the driver retries transient failures.
func (s *Store) Session(ctx context.Context) (graphstore.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{sess: s.newSession(ctx, neo4j.AccessModeWrite)}, nil
}

// Counts returns the node and relationship totals.
func (s *Store) Counts(ctx context.Context) (graphstore.Counts, error) {
	sess := s.newSession(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	out, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, countsCypher, nil)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		nodes, _ := rec.Get("nodes")
		edges, _ := rec.Get("edges")
		return graphstore.Counts{Nodes: toInt64(nodes), Edges: toInt64(edges)}, nil
	})
	if err != nil {
		return graphstore.Counts{}, err
	}
	return out.(graphstore.Counts), nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close closes the driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	default:
		return 0
	}
}

var _ graphstore.Store = (*Store)(nil)
