package neo4jstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/graphstore/storetest"
)

func TestConvertPath(t *testing.T) {
	p := dbtype.Path{
		Nodes: []dbtype.Node{
			{ElementId: "4:x:1", Labels: []string{"Subscriber"}, Props: map[string]any{"phoneNumber": "555"}},
			{ElementId: "4:x:2", Labels: []string{"Communication"}, Props: map[string]any{"type": "CALL"}},
		},
		Relationships: []dbtype.Relationship{
			{ElementId: "5:x:9", StartElementId: "4:x:1", EndElementId: "4:x:2", Type: "INITIATED"},
		},
	}

	got := convertPath(p)
	if len(got.Nodes) != 2 || len(got.Relationships) != 1 {
		t.Fatalf("Expected 2 nodes and 1 relationship, got %d and %d", len(got.Nodes), len(got.Relationships))
	}
	if got.Nodes[0].ID != "4:x:1" || got.Nodes[0].Labels[0] != "Subscriber" {
		t.Errorf("Unexpected first node %+v", got.Nodes[0])
	}
	r := got.Relationships[0]
	if r.StartID != "4:x:1" || r.EndID != "4:x:2" || r.Type != "INITIATED" {
		t.Errorf("Unexpected relationship %+v", r)
	}
}

func TestTimeOf(t *testing.T) {
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	if got := timeOf(want.In(time.FixedZone("X", 7200))); !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("timeOf(time.Time) = %v", got)
	}
	if got := timeOf(dbtype.LocalDateTime(want)); !got.Equal(want) {
		t.Errorf("timeOf(LocalDateTime) = %v", got)
	}
	if got := timeOf("nope"); !got.IsZero() {
		t.Errorf("timeOf(string) = %v, want zero", got)
	}
}

// TestConformance runs against a disposable database named by
// NEO4J_TEST_URI. Every node is deleted before each case.
func TestConformance(t *testing.T) {
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}
	cfg := Config{
		URI:      uri,
		Username: os.Getenv("NEO4J_TEST_USER"),
		Password: os.Getenv("NEO4J_TEST_PASSWORD"),
	}

	storetest.Run(t, func(t *testing.T) graphstore.Store {
		ctx := context.Background()
		s, err := Open(ctx, cfg, nil)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		sess := s.newSession(ctx, neo4j.AccessModeWrite)
		defer sess.Close(ctx)
		res, err := sess.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil {
			t.Fatalf("Failed to reset database: %v", err)
		}
		return s
	})
}
