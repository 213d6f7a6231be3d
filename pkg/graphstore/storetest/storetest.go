// Package storetest is a conformance suite every graphstore.Store backend
// must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) graphstore.Store

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, sess graphstore.Session, store graphstore.Store)
	}{
		{"MergeIdempotence", testMergeIdempotence},
		{"TowerCoordinatesPinned", testTowerPinning},
		{"FullPathsEmptyStore", testFullEmpty},
		{"FullPathsOnePerRelationship", testFullOnePerRelationship},
		{"NeighborhoodEndToEnd", testNeighborhoodEndToEnd},
		{"NeighborhoodUnknownSubscriber", testNeighborhoodUnknown},
		{"ShortestPathsSymmetric", testShortestSymmetric},
		{"ShortestPathsDisconnected", testShortestDisconnected},
		{"OwnedPathsNonDisclosure", testOwnedNonDisclosure},
		{"OwnedPathsExpandThroughSharedNodes", testOwnedExpandsThroughSharedNodes},
		{"IngestUnknownListingSet", testIngestUnknownListingSet},
		{"ListingSetUnknownOwner", testListingSetUnknownOwner},
		{"ListingSetsNewestFirst", testListingSetsNewestFirst},
		{"Users", testUsers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			t.Cleanup(func() { store.Close(ctx) })

			sess, err := store.Session(ctx)
			require.NoError(t, err)
			t.Cleanup(func() { sess.Close(ctx) })

			tt.fn(t, sess, store)
		})
	}
}

// Record builds a row for tests. Coordinates default to zero.
func Record(caller, callee, imei, tower string, ts time.Time) schema.Record {
	return schema.Record{
		Timestamp:      ts,
		Type:           schema.CommCall,
		Duration:       "60",
		Caller:         caller,
		Callee:         callee,
		IMEI:           imei,
		TowerName:      tower,
		TowerLongitude: 0.0,
		TowerLatitude:  0.0,
	}
}

var t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func seedOwner(t *testing.T, sess graphstore.Session, username, listingSetID string, at time.Time) {
	t.Helper()
	ctx := context.Background()

	if _, err := sess.GetUser(ctx, username); schema.IsNotFound(err) {
		require.NoError(t, sess.CreateUser(ctx, schema.User{
			Username: username,
			Role:     schema.RoleAnalyst,
			IsActive: true,
		}))
	}
	require.NoError(t, sess.CreateListingSet(ctx, schema.ListingSet{
		ID:            listingSetID,
		Name:          listingSetID,
		OwnerUsername: username,
		CreatedAt:     at,
	}))
}

func nodeIDs(paths []graphstore.Path) map[string]graphstore.PathNode {
	out := make(map[string]graphstore.PathNode)
	for _, p := range paths {
		for _, n := range p.Nodes {
			out[n.ID] = n
		}
	}
	return out
}

func relTypes(paths []graphstore.Path) map[string]int {
	out := make(map[string]int)
	seen := make(map[string]bool)
	for _, p := range paths {
		for _, r := range p.Relationships {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out[r.Type]++
		}
	}
	return out
}

func hasLabel(n graphstore.PathNode, label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func testMergeIdempotence(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	ctx := context.Background()
	seedOwner(t, sess, "alice", "ls-1", t0)

	rec := Record("555-0001", "555-0002", "IMEI1", "T1", t0)
	require.NoError(t, sess.IngestRecord(ctx, "ls-1", rec))
	first, err := store.Counts(ctx)
	require.NoError(t, err)

	require.NoError(t, sess.IngestRecord(ctx, "ls-1", rec))
	second, err := store.Counts(ctx)
	require.NoError(t, err)

	// Only the new Communication is added: no new subscriber, device or tower.
	assert.Equal(t, first.Nodes+1, second.Nodes)
	assert.Equal(t, first.Edges+5, second.Edges)
}

func testTowerPinning(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	ctx := context.Background()
	seedOwner(t, sess, "alice", "ls-1", t0)

	rec := Record("1", "2", "IMEI1", "T1", t0)
	rec.TowerLongitude, rec.TowerLatitude = 12.5, 41.9
	require.NoError(t, sess.IngestRecord(ctx, "ls-1", rec))

	rec.TowerLongitude, rec.TowerLatitude = -70.0, 10.0
	require.NoError(t, sess.IngestRecord(ctx, "ls-1", rec))

	paths, err := sess.FullPaths(ctx)
	require.NoError(t, err)

	towers := 0
	for _, n := range nodeIDs(paths) {
		if !hasLabel(n, schema.LabelCellTower) {
			continue
		}
		towers++
		assert.EqualValues(t, 12.5, n.Properties[schema.PropLongitude])
		assert.EqualValues(t, 41.9, n.Properties[schema.PropLatitude])
	}
	assert.Equal(t, 1, towers)
}

func testFullEmpty(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	paths, err := sess.FullPaths(context.Background())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func testFullOnePerRelationship(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	ctx := context.Background()
	seedOwner(t, sess, "alice", "ls-1", t0)
	require.NoError(t, sess.IngestRecord(ctx, "ls-1", Record("1", "2", "I", "T", t0)))

	paths, err := sess.FullPaths(ctx)
	require.NoError(t, err)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Len(t, paths, int(counts.Edges))
	for _, p := range paths {
		assert.Len(t, p.Relationships, 1)
		assert.Len(t, p.Nodes, 2)
	}
}

func testNeighborhoodEndToEnd(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	ctx := context.Background()
	seedOwner(t, sess, "alice", "ls-1", t0)

	rec := Record("555-0001", "555-0002", "IMEI1", "T1", t0)
	rec.Type, rec.Duration = schema.CommSMS, "SMS"
	require.NoError(t, sess.IngestRecord(ctx, "ls-1", rec))

	paths, err := sess.NeighborhoodPaths(ctx, "555-0001")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	nodes := nodeIDs(paths)
	labels := make(map[string]int)
	for _, n := range nodes {
		for _, l := range n.Labels {
			labels[l]++
		}
	}
	// The anchor and its one Communication; nothing further out.
	assert.Equal(t, 1, labels[schema.LabelSubscriber])
	assert.Equal(t, 1, labels[schema.LabelCommunication])
	assert.Zero(t, labels[schema.LabelDevice])
	assert.Equal(t, map[string]int{schema.RelInitiated: 1}, relTypes(paths))

	var commHops []graphstore.Path
	for _, p := range paths {
		if len(p.Nodes) == 2 && hasLabel(p.Nodes[1], schema.LabelCommunication) {
			commHops = append(commHops, p)
			assert.Equal(t, "SMS", p.Nodes[1].Properties[schema.PropType])
			assert.Equal(t, "SMS", p.Nodes[1].Properties[schema.PropDuration])
		}
	}
	require.Len(t, commHops, 1)

	// The callee, device and tower sit one hop from that Communication.
	full, err := sess.FullPaths(ctx)
	require.NoError(t, err)
	commID := commHops[0].Nodes[1].ID
	around := make(map[string]string)
	for _, p := range full {
		r := p.Relationships[0]
		if r.StartID == commID {
			around[r.Type] = r.EndID
		}
	}
	assert.Len(t, around, 4)
	for _, rel := range []string{schema.RelIsDirectedTo, schema.RelUsedDevice, schema.RelRoutedThrough, schema.RelPartOf} {
		assert.Contains(t, around, rel)
	}

	callee, err := sess.NeighborhoodPaths(ctx, "555-0002")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{schema.RelIsDirectedTo: 1}, relTypes(callee))
}

func testNeighborhoodUnknown(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	paths, err := sess.NeighborhoodPaths(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func testShortestSymmetric(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	ctx := context.Background()
	seedOwner(t, sess, "alice", "ls-1", t0)
	require.NoError(t, sess.IngestRecord(ctx, "ls-1", Record("A", "B", "I1", "T1", t0)))
	require.NoError(t, sess.IngestRecord(ctx, "ls-1", Record("B", "C", "I2", "T2", t0)))

	ab, err := sess.ShortestPaths(ctx, "A", "C")
	require.NoError(t, err)
	ba, err := sess.ShortestPaths(ctx, "C", "A")
	require.NoError(t, err)

	require.NotEmpty(t, ab)
	require.Equal(t, len(ab), len(ba))
	for i := range ab {
		assert.Equal(t, len(ab[i].Nodes), len(ba[i].Nodes))
		assert.Equal(t, len(ab[i].Relationships), len(ba[i].Relationships))
	}
	// A -> c1 -> B -> c2 -> C
	assert.Len(t, ab[0].Relationships, 4)
}

func testShortestDisconnected(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	ctx := context.Background()
	seedOwner(t, sess, "alice", "ls-1", t0)
	require.NoError(t, sess.IngestRecord(ctx, "ls-1", Record("A", "B", "I1", "T1", t0)))

	paths, err := sess.ShortestPaths(ctx, "A", "missing")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func testOwnedNonDisclosure(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	ctx := context.Background()
	seedOwner(t, sess, "alice", "ls-a", t0)
	seedOwner(t, sess, "bob", "ls-b", t0)
	require.NoError(t, sess.IngestRecord(ctx, "ls-b", Record("1", "2", "I", "T", t0)))

	foreign, err := sess.OwnedPaths(ctx, "alice", []string{"ls-b"})
	require.NoError(t, err)
	unknown, err := sess.OwnedPaths(ctx, "alice", []string{"no-such-set"})
	require.NoError(t, err)
	noOwner, err := sess.OwnedPaths(ctx, "mallory", []string{"ls-b"})
	require.NoError(t, err)

	assert.Empty(t, foreign)
	assert.Empty(t, unknown)
	assert.Empty(t, noOwner)

	own, err := sess.OwnedPaths(ctx, "bob", []string{"ls-b"})
	require.NoError(t, err)
	assert.NotEmpty(t, own)
}

func testOwnedExpandsThroughSharedNodes(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	ctx := context.Background()
	seedOwner(t, sess, "alice", "ls-a", t0)
	seedOwner(t, sess, "bob", "ls-b", t0)

	// S2 links alice's call to bob's; X and Y share nothing with either.
	require.NoError(t, sess.IngestRecord(ctx, "ls-a", Record("S1", "S2", "IA", "TA", t0)))
	require.NoError(t, sess.IngestRecord(ctx, "ls-b", Record("S2", "S3", "IB", "TB", t0)))
	require.NoError(t, sess.IngestRecord(ctx, "ls-b", Record("X", "Y", "IX", "TX", t0)))

	paths, err := sess.OwnedPaths(ctx, "alice", []string{"ls-a", "ls-b"})
	require.NoError(t, err)

	nodes := nodeIDs(paths)
	comms := 0
	phones := make(map[any]bool)
	for _, n := range nodes {
		switch {
		case hasLabel(n, schema.LabelCommunication):
			comms++
		case hasLabel(n, schema.LabelListingSet):
			assert.Equal(t, "ls-a", n.Properties[schema.PropID])
		case hasLabel(n, schema.LabelUser):
			t.Errorf("user node %v disclosed", n.Properties[schema.PropUsername])
		case hasLabel(n, schema.LabelSubscriber):
			phones[n.Properties[schema.PropPhoneNumber]] = true
		}
	}
	assert.Equal(t, 2, comms)
	assert.Equal(t, map[any]bool{"S1": true, "S2": true, "S3": true}, phones)
	assert.Equal(t, map[string]int{
		schema.RelInitiated:     2,
		schema.RelIsDirectedTo:  2,
		schema.RelUsedDevice:    2,
		schema.RelRoutedThrough: 2,
		schema.RelPartOf:        1,
	}, relTypes(paths))
}

func testIngestUnknownListingSet(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	ctx := context.Background()
	err := sess.IngestRecord(ctx, "missing", Record("1", "2", "I", "T", t0))
	assert.ErrorIs(t, err, schema.ErrNotFound)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Nodes)
}

func testListingSetUnknownOwner(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	err := sess.CreateListingSet(context.Background(), schema.ListingSet{
		ID: "x", Name: "x", OwnerUsername: "ghost", CreatedAt: t0,
	})
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func testListingSetsNewestFirst(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	ctx := context.Background()
	seedOwner(t, sess, "alice", "old", t0)
	seedOwner(t, sess, "alice", "new", t0.Add(time.Hour))
	seedOwner(t, sess, "alice", "mid", t0.Add(time.Minute))
	seedOwner(t, sess, "bob", "bobs", t0.Add(2*time.Hour))

	sets, err := sess.ListingSetsByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.Equal(t, "new", sets[0].ID)
	assert.Equal(t, "mid", sets[1].ID)
	assert.Equal(t, "old", sets[2].ID)
	assert.True(t, sets[0].CreatedAt.Equal(t0.Add(time.Hour)))
	assert.Nil(t, sets[0].Description)

	none, err := sess.ListingSetsByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testUsers(t *testing.T, sess graphstore.Session, store graphstore.Store) {
	ctx := context.Background()
	u := schema.User{Username: "carol", FullName: "Carol", PasswordHash: "h", Role: schema.RoleAdmin, IsActive: true}
	require.NoError(t, sess.CreateUser(ctx, u))
	assert.ErrorIs(t, sess.CreateUser(ctx, u), schema.ErrUserExists)

	got, err := sess.GetUser(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = sess.GetUser(ctx, "dave")
	assert.ErrorIs(t, err, schema.ErrNotFound)

	users, err := sess.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
