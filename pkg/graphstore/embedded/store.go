// Package embedded implements the graph store contracts on the in-process
// storage engine.
package embedded

import (
	"context"
	"strconv"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
	"github.com/dd0wney/cluso-commgraph/pkg/storage"
)

// DefaultShortestPathLimit caps how many equal-length paths one shortest-path
// query enumerates.
const DefaultShortestPathLimit = 1000

// Store is a graphstore.Store over a GraphStorage.
type Store struct {
	gs                *storage.GraphStorage
	shortestPathLimit int
}

// Option configures a Store.
type Option func(*Store)

// WithShortestPathLimit overrides DefaultShortestPathLimit. Zero disables the cap.
func WithShortestPathLimit(n int) Option {
	return func(s *Store) { s.shortestPathLimit = n }
}

// Open opens the storage engine at cfg and declares the schema's unique keys.
func Open(cfg storage.Config, opts ...Option) (*Store, error) {
	gs, err := storage.Open(cfg)
	if err != nil {
		return nil, err
	}
	s, err := New(gs, opts...)
	if err != nil {
		gs.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already open GraphStorage.
func New(gs *storage.GraphStorage, opts ...Option) (*Store, error) {
	for _, k := range schema.UniqueKeys {
		if err := gs.EnsureUnique(k.Label, k.Property); err != nil {
			return nil, err
		}
	}
	s := &Store{gs: gs, shortestPathLimit: DefaultShortestPathLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewMemory returns a store with no persistence.
func NewMemory() *Store {
	s, _ := New(storage.NewMemory())
	return s
}

// Session returns a session. Embedded sessions are stateless handles; the
// storage engine serialises writers internally.
func (s *Store) Session(ctx context.Context) (graphstore.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{store: s}, nil
}

// Counts returns the node and edge totals.
func (s *Store) Counts(ctx context.Context) (graphstore.Counts, error) {
	stats := s.gs.Statistics()
	return graphstore.Counts{Nodes: int64(stats.NodeCount), Edges: int64(stats.EdgeCount)}, nil
}

// Ping checks that the engine is open.
func (s *Store) Ping(ctx context.Context) error {
	return s.gs.View(func(storage.Reader) error { return nil })
}

// Close closes the storage engine.
func (s *Store) Close(ctx context.Context) error {
	return s.gs.Close()
}

// Storage exposes the underlying engine.
func (s *Store) Storage() *storage.GraphStorage {
	return s.gs
}

type session struct {
	store *Store
}

func (s *session) Close(ctx context.Context) error {
	return nil
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

var _ graphstore.Store = (*Store)(nil)
