package embedded

import (
	"sort"

	"github.com/dd0wney/cluso-commgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/storage"
)

func toPaths(r storage.Reader, in []algorithms.Path) []graphstore.Path {
	out := make([]graphstore.Path, 0, len(in))
	for _, p := range in {
		out = append(out, toPath(r, p))
	}
	return out
}

func toPath(r storage.Reader, p algorithms.Path) graphstore.Path {
	path := graphstore.Path{
		Nodes:         make([]graphstore.PathNode, 0, len(p.Nodes)),
		Relationships: make([]graphstore.PathRelationship, 0, len(p.Edges)),
	}
	for _, id := range p.Nodes {
		n, ok := r.Node(id)
		if !ok {
			continue
		}
		path.Nodes = append(path.Nodes, graphstore.PathNode{
			ID:         formatID(n.ID),
			Labels:     append([]string(nil), n.Labels...),
			Properties: storage.PlainProperties(n.Properties),
		})
	}
	for _, id := range p.Edges {
		e, ok := r.Edge(id)
		if !ok {
			continue
		}
		path.Relationships = append(path.Relationships, graphstore.PathRelationship{
			ID:         formatID(e.ID),
			StartID:    formatID(e.FromNodeID),
			EndID:      formatID(e.ToNodeID),
			Type:       e.Type,
			Properties: storage.PlainProperties(e.Properties),
		})
	}
	return path
}

func stringProp(n *storage.Node, key string) string {
	v, ok := n.Properties[key]
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

func boolProp(n *storage.Node, key string) bool {
	v, ok := n.Properties[key]
	if !ok {
		return false
	}
	b, _ := v.AsBool()
	return b
}

func sortIDs(ids []uint64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
