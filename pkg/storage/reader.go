package storage

// Reader is the read-only view passed to View callbacks and embedded in Tx.
// Returned nodes and edges are shared with the store and must not be modified.
type Reader interface {
	Node(id uint64) (*Node, bool)
	Edge(id uint64) (*Edge, bool)
	// FindNode looks a node up by label and property value, using the unique
	// index when one is declared.
	FindNode(label, property string, value Value) (*Node, bool)
	NodesByLabel(label string) []*Node
	OutgoingEdges(nodeID uint64) []*Edge
	IncomingEdges(nodeID uint64) []*Edge
	// Edges returns every edge in creation order.
	Edges() []*Edge
}

type reader struct {
	gs *GraphStorage
}

func (r reader) Node(id uint64) (*Node, bool) {
	n, ok := r.gs.nodes[id]
	return n, ok
}

func (r reader) Edge(id uint64) (*Edge, bool) {
	e, ok := r.gs.edges[id]
	return e, ok
}

func (r reader) FindNode(label, property string, value Value) (*Node, bool) {
	if index, ok := r.gs.unique[label][property]; ok {
		id, found := index[value.key()]
		if !found {
			return nil, false
		}
		return r.gs.nodes[id], true
	}

	want := value.key()
	for _, id := range r.gs.nodesByLabel[label] {
		n := r.gs.nodes[id]
		if v, ok := n.Properties[property]; ok && v.key() == want {
			return n, true
		}
	}
	return nil, false
}

func (r reader) NodesByLabel(label string) []*Node {
	ids := r.gs.nodesByLabel[label]
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.gs.nodes[id])
	}
	return out
}

func (r reader) OutgoingEdges(nodeID uint64) []*Edge {
	return r.edgeList(r.gs.outgoingEdges[nodeID])
}

func (r reader) IncomingEdges(nodeID uint64) []*Edge {
	return r.edgeList(r.gs.incomingEdges[nodeID])
}

func (r reader) Edges() []*Edge {
	return r.edgeList(r.gs.edgeOrder)
}

func (r reader) edgeList(ids []uint64) []*Edge {
	out := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.gs.edges[id])
	}
	return out
}
