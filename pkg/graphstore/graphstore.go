// Package graphstore defines the contracts the query engine, the ingestion
// pipeline and the listing-set registry issue against a graph database, and
// the raw path shape every backend returns.
//
// Two backends exist: embedded (pkg/storage in process) and neo4jstore.
package graphstore

import (
	"context"

	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

// PathNode is a node as the store returns it. ID is store-assigned and
// opaque; Properties hold plain Go values, possibly store-specific temporal
// types.
type PathNode struct {
	ID         string
	Labels     []string
	Properties map[string]any
}

// PathRelationship is a relationship as the store returns it, with its real
// direction regardless of how the pattern matched it.
type PathRelationship struct {
	ID         string
	StartID    string
	EndID      string
	Type       string
	Properties map[string]any
}

// Path is one traversal match: len(Nodes) == len(Relationships)+1.
type Path struct {
	Nodes         []PathNode
	Relationships []PathRelationship
}

// Reader issues the four traversal contracts.
type Reader interface {
	// FullPaths returns every one-hop path, one per relationship.
	FullPaths(ctx context.Context) ([]Path, error)
	// NeighborhoodPaths returns the zero- and one-hop paths around the
	// Subscriber with phone. No subscriber yields no paths.
	NeighborhoodPaths(ctx context.Context, phone string) ([]Path, error)
	// ShortestPaths returns all shortest undirected paths between two
	// subscribers. Missing endpoints or no connection yield no paths.
	ShortestPaths(ctx context.Context, startPhone, endPhone string) ([]Path, error)
	// OwnedPaths returns the tenant-scoped subgraph around the
	// Communications of the listing sets that owner owns among ids.
	OwnedPaths(ctx context.Context, owner string, listingSetIDs []string) ([]Path, error)
}

// Writer applies the per-row ingestion mutation.
type Writer interface {
	// IngestRecord merges the record's subscribers, device and tower, creates
	// its Communication and links it to the listing set, all atomically. A
	// missing listing set is schema.ErrNotFound.
	IngestRecord(ctx context.Context, listingSetID string, rec schema.Record) error
}

// ListingSets persists listing sets.
type ListingSets interface {
	// CreateListingSet stores ls and links it from its owner. A missing owner
	// is schema.ErrNotFound.
	CreateListingSet(ctx context.Context, ls schema.ListingSet) error
	// ListingSetsByOwner returns the owner's sets, newest first.
	ListingSetsByOwner(ctx context.Context, owner string) ([]schema.ListingSet, error)
}

// Users persists user accounts as User nodes.
type Users interface {
	CreateUser(ctx context.Context, u schema.User) error
	GetUser(ctx context.Context, username string) (schema.User, error)
	ListUsers(ctx context.Context) ([]schema.User, error)
}

// Session is one unit of store access. Sessions are not safe for concurrent
// use; every request acquires its own.
type Session interface {
	Reader
	Writer
	ListingSets
	Users
	Close(ctx context.Context) error
}

// Counts is the size of the stored graph.
type Counts struct {
	Nodes int64
	Edges int64
}

// Store hands out sessions.
type Store interface {
	Session(ctx context.Context) (Session, error)
	Counts(ctx context.Context) (Counts, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// WithSession runs fn with a fresh session and closes it afterwards.
func WithSession(ctx context.Context, store Store, fn func(Session) error) error {
	sess, err := store.Session(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)
	return fn(sess)
}
