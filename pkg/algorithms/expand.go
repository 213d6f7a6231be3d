package algorithms

import "github.com/dd0wney/cluso-commgraph/pkg/storage"

// EdgeFilter decides whether a traversal may cross edge from node from to
// node to.
type EdgeFilter func(edge *storage.Edge, from, to *storage.Node) bool

// Expand walks outward from seeds in breadth-first order, to any depth,
// crossing only the edges that allow accepts. Every crossed edge is reported
// exactly once as a one-hop path from the node it was reached from. Seeds that
// do not exist are ignored.
func Expand(r storage.Reader, seeds []uint64, allow EdgeFilter) []Path {
	visited := make(map[uint64]bool, len(seeds))
	crossed := make(map[uint64]bool)
	var queue []uint64

	for _, id := range seeds {
		if _, ok := r.Node(id); !ok || visited[id] {
			continue
		}
		visited[id] = true
		queue = append(queue, id)
	}

	var paths []Path
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		from, _ := r.Node(current)
		for _, s := range incident(r, current) {
			if crossed[s.edge.ID] {
				continue
			}
			to, ok := r.Node(s.neighbor)
			if !ok || !allow(s.edge, from, to) {
				continue
			}
			crossed[s.edge.ID] = true
			paths = append(paths, Path{
				Nodes: []uint64{current, s.neighbor},
				Edges: []uint64{s.edge.ID},
			})
			if !visited[s.neighbor] {
				visited[s.neighbor] = true
				queue = append(queue, s.neighbor)
			}
		}
	}
	return paths
}
