// Package graphql exposes the traversal contracts and the caller's listing
// sets over GraphQL.
package graphql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/dd0wney/cluso-commgraph/pkg/auth"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

// ErrUnauthenticated is returned by fields that need a caller when the
// request context carries none.
var ErrUnauthenticated = errors.New("authentication required")

// Queries is the query engine as seen by the resolvers.
type Queries interface {
	Full(ctx context.Context) (schema.Graph, error)
	Neighborhood(ctx context.Context, phone string) (schema.Graph, error)
	ShortestPath(ctx context.Context, startPhone, endPhone string) (schema.Graph, error)
	OwnedSubgraph(ctx context.Context, owner string, listingSetIDs []string) (schema.Graph, error)
}

// ListingSets lists a caller's listing sets.
type ListingSets interface {
	ListByOwner(ctx context.Context, owner string) ([]schema.ListingSet, error)
}

// jsonScalar passes property maps through untouched.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Arbitrary JSON value",
	Serialize:   func(value any) any { return value },
	ParseValue:  func(value any) any { return value },
	ParseLiteral: func(valueAST ast.Value) any {
		return valueAST.GetValue()
	},
})

var nodeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Node",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.Node).ID, nil
		}},
		"label": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.Node).Label, nil
		}},
		"properties": &graphql.Field{Type: jsonScalar, Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.Node).Properties, nil
		}},
	},
})

var edgeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Edge",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.Edge).ID, nil
		}},
		"source": &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.Edge).Source, nil
		}},
		"target": &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.Edge).Target, nil
		}},
		"label": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.Edge).Label, nil
		}},
		"properties": &graphql.Field{Type: jsonScalar, Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.Edge).Properties, nil
		}},
	},
})

var graphType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Graph",
	Fields: graphql.Fields{
		"nodes": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(nodeType))),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(schema.Graph).Nodes, nil
			},
		},
		"edges": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(edgeType))),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(schema.Graph).Edges, nil
			},
		},
	},
})

var listingSetType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ListingSet",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.ListingSet).ID, nil
		}},
		"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.ListingSet).Name, nil
		}},
		"description": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) {
			if d := p.Source.(schema.ListingSet).Description; d != nil {
				return *d, nil
			}
			return nil, nil
		}},
		"ownerUsername": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.ListingSet).OwnerUsername, nil
		}},
		"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: func(p graphql.ResolveParams) (any, error) {
			return p.Source.(schema.ListingSet).CreatedAt.Format(time.RFC3339Nano), nil
		}},
	},
})

// NewSchema builds the schema. Every field reads the caller from the
// request context; visualize and listingSets are scoped to it.
func NewSchema(queries Queries, listings ListingSets) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"fullGraph": &graphql.Field{
				Type: graphql.NewNonNull(graphType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return queries.Full(p.Context)
				},
			},
			"neighborhood": &graphql.Field{
				Type: graphType,
				Args: graphql.FieldConfigArgument{
					"phoneNumber": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					phone, _ := p.Args["phoneNumber"].(string)
					return graphOrNil(queries.Neighborhood(p.Context, phone))
				},
			},
			"shortestPath": &graphql.Field{
				Type: graphType,
				Args: graphql.FieldConfigArgument{
					"startPhone": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"endPhone":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					start, _ := p.Args["startPhone"].(string)
					end, _ := p.Args["endPhone"].(string)
					return graphOrNil(queries.ShortestPath(p.Context, start, end))
				},
			},
			"visualize": &graphql.Field{
				Type: graphql.NewNonNull(graphType),
				Args: graphql.FieldConfigArgument{
					"listingSetIds": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID))),
					},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					claims, ok := auth.ClaimsFromContext(p.Context)
					if !ok {
						return nil, ErrUnauthenticated
					}
					raw, _ := p.Args["listingSetIds"].([]any)
					ids := make([]string, 0, len(raw))
					for _, v := range raw {
						ids = append(ids, fmt.Sprint(v))
					}
					return queries.OwnedSubgraph(p.Context, claims.Username(), ids)
				},
			},
			"listingSets": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(listingSetType))),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					claims, ok := auth.ClaimsFromContext(p.Context)
					if !ok {
						return nil, ErrUnauthenticated
					}
					return listings.ListByOwner(p.Context, claims.Username())
				},
			},
		},
	})

	s, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

// graphOrNil returns nil instead of an empty graph alongside an error, so
// the field resolves to null.
func graphOrNil(g schema.Graph, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return g, nil
}
