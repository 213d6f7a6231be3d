package algorithms

import "github.com/dd0wney/cluso-commgraph/pkg/storage"

// Neighborhood returns the paths of length zero and one anchored at nodeID:
// the node on its own, then one path per incident edge regardless of
// direction. A missing node yields no paths.
func Neighborhood(r storage.Reader, nodeID uint64) []Path {
	if _, ok := r.Node(nodeID); !ok {
		return nil
	}

	steps := incident(r, nodeID)
	paths := make([]Path, 0, len(steps)+1)
	paths = append(paths, Path{Nodes: []uint64{nodeID}})

	for _, s := range steps {
		paths = append(paths, Path{
			Nodes: []uint64{nodeID, s.neighbor},
			Edges: []uint64{s.edge.ID},
		})
	}
	return paths
}
