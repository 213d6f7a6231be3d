// Package algorithms holds the traversals behind the graph query contracts.
// All traversals ignore edge direction.
package algorithms

import "github.com/dd0wney/cluso-commgraph/pkg/storage"

// Path is an alternating node/edge sequence. Nodes always has one more
// element than Edges; a zero-length path is a single node.
type Path struct {
	Nodes []uint64
	Edges []uint64
}

// Len returns the number of edges in the path.
func (p Path) Len() int {
	return len(p.Edges)
}

// step is one undirected hop out of a node.
type step struct {
	edge     *storage.Edge
	neighbor uint64
}

// incident returns the undirected hops out of nodeID: outgoing edges first,
// then incoming edges. A self-loop is reported once.
func incident(r storage.Reader, nodeID uint64) []step {
	out := r.OutgoingEdges(nodeID)
	in := r.IncomingEdges(nodeID)

	steps := make([]step, 0, len(out)+len(in))
	for _, e := range out {
		steps = append(steps, step{edge: e, neighbor: e.ToNodeID})
	}
	for _, e := range in {
		if e.FromNodeID == e.ToNodeID {
			continue
		}
		steps = append(steps, step{edge: e, neighbor: e.FromNodeID})
	}
	return steps
}
