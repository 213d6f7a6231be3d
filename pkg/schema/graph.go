package schema

// Node is a materialized graph node. ID is the store-assigned identifier,
// never a natural key.
type Node struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

// Edge is a materialized relationship between two store ids.
type Edge struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

// Graph is the response shape for every query contract.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// EmptyGraph returns a graph whose lists encode as [] rather than null.
func EmptyGraph() Graph {
	return Graph{Nodes: []Node{}, Edges: []Edge{}}
}

// IsEmpty reports whether the graph has neither nodes nor edges.
func (g Graph) IsEmpty() bool {
	return len(g.Nodes) == 0 && len(g.Edges) == 0
}
