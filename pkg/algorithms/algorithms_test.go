package algorithms

import (
	"testing"

	"github.com/dd0wney/cluso-commgraph/pkg/storage"
)

// testGraph builds nodes and directed edges from a compact description and
// returns node IDs by name.
func testGraph(t *testing.T, names []string, edges [][2]string) (*storage.GraphStorage, map[string]uint64) {
	t.Helper()
	gs := storage.NewMemory()
	t.Cleanup(func() { gs.Close() })

	ids := make(map[string]uint64)
	err := gs.Update(func(tx *storage.Tx) error {
		for _, name := range names {
			n, err := tx.CreateNode([]string{"Node"}, map[string]storage.Value{"name": storage.StringValue(name)})
			if err != nil {
				return err
			}
			ids[name] = n.ID
		}
		for _, e := range edges {
			if _, err := tx.CreateEdge(ids[e[0]], ids[e[1]], "LINK", nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	return gs, ids
}

func TestAllShortestPaths_Diamond(t *testing.T) {
	// a -> b -> d, a -> c -> d
	gs, ids := testGraph(t, []string{"a", "b", "c", "d"}, [][2]string{
		{"a", "b"}, {"b", "d"}, {"a", "c"}, {"c", "d"},
	})

	gs.View(func(r storage.Reader) error {
		paths := AllShortestPaths(r, ids["a"], ids["d"], 0)
		if len(paths) != 2 {
			t.Fatalf("Expected 2 shortest paths, got %d", len(paths))
		}
		for _, p := range paths {
			if p.Len() != 2 {
				t.Errorf("Expected path length 2, got %d", p.Len())
			}
			if p.Nodes[0] != ids["a"] || p.Nodes[2] != ids["d"] {
				t.Errorf("Path %v does not run from a to d", p.Nodes)
			}
		}
		return nil
	})
}

func TestAllShortestPaths_IgnoresDirection(t *testing.T) {
	// a -> b <- c: no directed path from a to c, one undirected.
	gs, ids := testGraph(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"c", "b"}})

	gs.View(func(r storage.Reader) error {
		forward := AllShortestPaths(r, ids["a"], ids["c"], 0)
		backward := AllShortestPaths(r, ids["c"], ids["a"], 0)
		if len(forward) != 1 || len(backward) != 1 {
			t.Fatalf("Expected 1 path each way, got %d and %d", len(forward), len(backward))
		}
		if forward[0].Edges[0] != backward[0].Edges[1] || forward[0].Edges[1] != backward[0].Edges[0] {
			t.Errorf("Expected mirrored edge sequences, got %v and %v", forward[0].Edges, backward[0].Edges)
		}
		return nil
	})
}

func TestAllShortestPaths_ParallelEdges(t *testing.T) {
	gs, ids := testGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})

	gs.View(func(r storage.Reader) error {
		if paths := AllShortestPaths(r, ids["a"], ids["b"], 0); len(paths) != 2 {
			t.Errorf("Expected one path per parallel edge, got %d", len(paths))
		}
		if paths := AllShortestPaths(r, ids["a"], ids["b"], 1); len(paths) != 1 {
			t.Errorf("Expected limit to cap paths at 1, got %d", len(paths))
		}
		return nil
	})
}

func TestAllShortestPaths_NoPath(t *testing.T) {
	gs, ids := testGraph(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}})

	gs.View(func(r storage.Reader) error {
		if paths := AllShortestPaths(r, ids["a"], ids["c"], 0); len(paths) != 0 {
			t.Errorf("Expected no path to isolated node, got %d", len(paths))
		}
		if paths := AllShortestPaths(r, ids["a"], 999, 0); len(paths) != 0 {
			t.Errorf("Expected no path to missing node, got %d", len(paths))
		}
		return nil
	})
}

func TestAllShortestPaths_SameNode(t *testing.T) {
	gs, ids := testGraph(t, []string{"a"}, nil)

	gs.View(func(r storage.Reader) error {
		paths := AllShortestPaths(r, ids["a"], ids["a"], 0)
		if len(paths) != 1 || paths[0].Len() != 0 {
			t.Errorf("Expected one zero-length path, got %v", paths)
		}
		return nil
	})
}

func TestNeighborhood(t *testing.T) {
	// b -> a, a -> c, a -> a
	gs, ids := testGraph(t, []string{"a", "b", "c", "far"}, [][2]string{
		{"b", "a"}, {"a", "c"}, {"a", "a"}, {"c", "far"},
	})

	gs.View(func(r storage.Reader) error {
		paths := Neighborhood(r, ids["a"])
		// zero-length, a->c, a->a, b->a
		if len(paths) != 4 {
			t.Fatalf("Expected 4 paths, got %d", len(paths))
		}
		if paths[0].Len() != 0 || paths[0].Nodes[0] != ids["a"] {
			t.Errorf("First path should be the anchor alone, got %v", paths[0])
		}
		for _, p := range paths {
			for _, n := range p.Nodes {
				if n == ids["far"] {
					t.Error("Neighborhood reached past one hop")
				}
			}
		}
		return nil
	})

	gs.View(func(r storage.Reader) error {
		if paths := Neighborhood(r, 12345); paths != nil {
			t.Errorf("Expected nil for missing node, got %v", paths)
		}
		return nil
	})
}

func TestExpand_RespectsFilter(t *testing.T) {
	// a - b - c - d, with the b-c edge blocked
	gs, ids := testGraph(t, []string{"a", "b", "c", "d"}, [][2]string{
		{"a", "b"}, {"b", "c"}, {"c", "d"},
	})

	gs.View(func(r storage.Reader) error {
		all := Expand(r, []uint64{ids["a"]}, func(*storage.Edge, *storage.Node, *storage.Node) bool { return true })
		if len(all) != 3 {
			t.Errorf("Expected 3 edges reached, got %d", len(all))
		}

		blocked := Expand(r, []uint64{ids["a"]}, func(e *storage.Edge, from, to *storage.Node) bool {
			return !(from.ID == ids["b"] && to.ID == ids["c"]) && !(from.ID == ids["c"] && to.ID == ids["b"])
		})
		if len(blocked) != 1 {
			t.Errorf("Expected traversal to stop at b, got %d edges", len(blocked))
		}
		return nil
	})
}

func TestExpand_EachEdgeOnce(t *testing.T) {
	// Two seeds that share an edge.
	gs, ids := testGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})

	gs.View(func(r storage.Reader) error {
		paths := Expand(r, []uint64{ids["a"], ids["b"], ids["a"]}, func(*storage.Edge, *storage.Node, *storage.Node) bool { return true })
		if len(paths) != 1 {
			t.Errorf("Expected shared edge once, got %d", len(paths))
		}
		return nil
	})
}
