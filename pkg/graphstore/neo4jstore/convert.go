package neo4jstore

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
)

// convertPath maps a driver path onto the store-neutral shape. Element ids
// are used as identifiers; they are stable within a database.
func convertPath(p dbtype.Path) graphstore.Path {
	out := graphstore.Path{
		Nodes:         make([]graphstore.PathNode, 0, len(p.Nodes)),
		Relationships: make([]graphstore.PathRelationship, 0, len(p.Relationships)),
	}
	for _, n := range p.Nodes {
		out.Nodes = append(out.Nodes, graphstore.PathNode{
			ID:         n.ElementId,
			Labels:     n.Labels,
			Properties: n.Props,
		})
	}
	for _, r := range p.Relationships {
		out.Relationships = append(out.Relationships, graphstore.PathRelationship{
			ID:         r.ElementId,
			StartID:    r.StartElementId,
			EndID:      r.EndElementId,
			Type:       r.Type,
			Properties: r.Props,
		})
	}
	return out
}
