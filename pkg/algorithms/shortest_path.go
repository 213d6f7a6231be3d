package algorithms

import "github.com/dd0wney/cluso-commgraph/pkg/storage"

// predecessor records how BFS reached a node at its shortest distance.
type predecessor struct {
	from uint64
	edge uint64
}

// AllShortestPaths returns every minimum-length path between startID and
// endID, ignoring direction. Parallel edges produce distinct paths. When the
// endpoints coincide the result is the single zero-length path. limit caps the
// number of enumerated paths; zero means unlimited.
func AllShortestPaths(r storage.Reader, startID, endID uint64, limit int) []Path {
	if _, ok := r.Node(startID); !ok {
		return nil
	}
	if _, ok := r.Node(endID); !ok {
		return nil
	}
	if startID == endID {
		return []Path{{Nodes: []uint64{startID}}}
	}

	dist := map[uint64]int{startID: 0}
	preds := make(map[uint64][]predecessor)
	frontier := []uint64{startID}

	for depth := 0; len(frontier) > 0; depth++ {
		if _, found := dist[endID]; found {
			break
		}

		var next []uint64
		for _, current := range frontier {
			for _, s := range incident(r, current) {
				d, seen := dist[s.neighbor]
				if !seen {
					dist[s.neighbor] = depth + 1
					next = append(next, s.neighbor)
					d = depth + 1
				}
				if d == depth+1 {
					preds[s.neighbor] = append(preds[s.neighbor], predecessor{from: current, edge: s.edge.ID})
				}
			}
		}
		frontier = next
	}

	if _, found := dist[endID]; !found {
		return nil
	}

	var paths []Path
	// Walk predecessors back from the end. Each reversed walk is one path.
	var walk func(node uint64, nodes, edges []uint64) bool
	walk = func(node uint64, nodes, edges []uint64) bool {
		nodes = append(nodes, node)
		if node == startID {
			paths = append(paths, reversed(nodes, edges))
			return limit <= 0 || len(paths) < limit
		}
		for _, p := range preds[node] {
			if !walk(p.from, nodes, append(edges, p.edge)) {
				return false
			}
		}
		return true
	}
	walk(endID, make([]uint64, 0, dist[endID]+1), make([]uint64, 0, dist[endID]))

	return paths
}

func reversed(nodes, edges []uint64) Path {
	p := Path{
		Nodes: make([]uint64, len(nodes)),
		Edges: make([]uint64, len(edges)),
	}
	for i, id := range nodes {
		p.Nodes[len(nodes)-1-i] = id
	}
	for i, id := range edges {
		p.Edges[len(edges)-1-i] = id
	}
	return p
}
