package embedded

import (
	"context"

	"github.com/dd0wney/cluso-commgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
	"github.com/dd0wney/cluso-commgraph/pkg/storage"
)

func (s *session) FullPaths(ctx context.Context) ([]graphstore.Path, error) {
	var paths []graphstore.Path
	err := s.store.gs.View(func(r storage.Reader) error {
		for _, e := range r.Edges() {
			if err := ctx.Err(); err != nil {
				return err
			}
			paths = append(paths, toPath(r, algorithms.Path{
				Nodes: []uint64{e.FromNodeID, e.ToNodeID},
				Edges: []uint64{e.ID},
			}))
		}
		return nil
	})
	return paths, err
}

func (s *session) NeighborhoodPaths(ctx context.Context, phone string) ([]graphstore.Path, error) {
	var paths []graphstore.Path
	err := s.store.gs.View(func(r storage.Reader) error {
		sub, ok := r.FindNode(schema.LabelSubscriber, schema.PropPhoneNumber, storage.StringValue(phone))
		if !ok {
			return nil
		}
		paths = toPaths(r, algorithms.Neighborhood(r, sub.ID))
		return nil
	})
	return paths, err
}

func (s *session) ShortestPaths(ctx context.Context, startPhone, endPhone string) ([]graphstore.Path, error) {
	var paths []graphstore.Path
	err := s.store.gs.View(func(r storage.Reader) error {
		start, ok := r.FindNode(schema.LabelSubscriber, schema.PropPhoneNumber, storage.StringValue(startPhone))
		if !ok {
			return nil
		}
		end, ok := r.FindNode(schema.LabelSubscriber, schema.PropPhoneNumber, storage.StringValue(endPhone))
		if !ok {
			return nil
		}
		paths = toPaths(r, algorithms.AllShortestPaths(r, start.ID, end.ID, s.store.shortestPathLimit))
		return nil
	})
	return paths, err
}

// OwnedPaths expands from the Communications of the qualifying listing sets
// through every relationship, to any depth, so communications linked through
// a shared subscriber, device or tower are pulled in. Only the set selection
// is scoped: the walk never crosses OWNS, never reaches a User and stops short
// of listing sets that did not qualify.
func (s *session) OwnedPaths(ctx context.Context, owner string, listingSetIDs []string) ([]graphstore.Path, error) {
	requested := make(map[string]bool, len(listingSetIDs))
	for _, id := range listingSetIDs {
		requested[id] = true
	}

	var paths []graphstore.Path
	err := s.store.gs.View(func(r storage.Reader) error {
		user, ok := r.FindNode(schema.LabelUser, schema.PropUsername, storage.StringValue(owner))
		if !ok {
			return nil
		}

		sets := make(map[uint64]bool)
		for _, e := range r.OutgoingEdges(user.ID) {
			if e.Type != schema.RelOwns {
				continue
			}
			ls, ok := r.Node(e.ToNodeID)
			if !ok || !ls.HasLabel(schema.LabelListingSet) {
				continue
			}
			if id := stringProp(ls, schema.PropID); requested[id] {
				sets[ls.ID] = true
			}
		}

		seen := make(map[uint64]bool)
		var seeds []uint64
		for lsID := range sets {
			for _, e := range r.IncomingEdges(lsID) {
				if e.Type != schema.RelPartOf || seen[e.FromNodeID] {
					continue
				}
				if c, ok := r.Node(e.FromNodeID); ok && c.HasLabel(schema.LabelCommunication) {
					seen[c.ID] = true
					seeds = append(seeds, c.ID)
				}
			}
		}
		if len(seeds) == 0 {
			return nil
		}
		sortIDs(seeds)

		inScope := func(e *storage.Edge, from, to *storage.Node) bool {
			if e.Type == schema.RelOwns || to.HasLabel(schema.LabelUser) {
				return false
			}
			if to.HasLabel(schema.LabelListingSet) && !sets[to.ID] {
				return false
			}
			return true
		}

		paths = toPaths(r, algorithms.Expand(r, seeds, inScope))
		return nil
	})
	return paths, err
}
