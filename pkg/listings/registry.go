// Package listings creates and lists the named, owned batches that ingested
// communications belong to.
package listings

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
	"github.com/dd0wney/cluso-commgraph/pkg/validation"
)

// Registry owns listing-set lifecycle.
type Registry struct {
	store  graphstore.Store
	logger logging.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the creation-time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDFunc replaces the identifier generator.
func WithIDFunc(newID func() string) Option {
	return func(r *Registry) { r.newID = newID }
}

// NewRegistry creates a registry over store.
func NewRegistry(store graphstore.Store, logger logging.Logger, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		logger: logging.OrNop(logger).With(logging.Component("listings")),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create stores a new listing set owned by owner. An unknown owner is
// schema.ErrNotFound.
func (r *Registry) Create(ctx context.Context, req schema.ListingSetCreate, owner string) (schema.ListingSet, error) {
	if err := validation.ValidateListingSetCreate(&req); err != nil {
		return schema.ListingSet{}, err
	}

	ls := schema.ListingSet{
		ID:            r.newID(),
		Name:          req.Name,
		Description:   req.Description,
		OwnerUsername: owner,
		CreatedAt:     r.now().UTC(),
	}

	err := graphstore.WithSession(ctx, r.store, func(s graphstore.Session) error {
		return s.CreateListingSet(ctx, ls)
	})
	if err != nil {
		return schema.ListingSet{}, err
	}

	r.logger.Info("listing set created", logging.ListingSetID(ls.ID), logging.Username(owner))
	return ls, nil
}

// ListByOwner returns owner's listing sets, most recent first. An unknown
// owner simply has none.
func (r *Registry) ListByOwner(ctx context.Context, owner string) ([]schema.ListingSet, error) {
	var sets []schema.ListingSet
	err := graphstore.WithSession(ctx, r.store, func(s graphstore.Session) error {
		var err error
		sets, err = s.ListingSetsByOwner(ctx, owner)
		return err
	})
	if sets == nil {
		sets = []schema.ListingSet{}
	}
	return sets, err
}
