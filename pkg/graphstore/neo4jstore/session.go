package neo4jstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

const constraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"

type session struct {
	sess neo4j.SessionWithContext
}

func (s *session) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

// readPaths runs a read query whose records carry a path in column "p".
func (s *session) readPaths(ctx context.Context, cypher string, params map[string]any) ([]graphstore.Path, error) {
	out, err := s.sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		paths := make([]graphstore.Path, 0, len(records))
		for _, rec := range records {
			raw, ok := rec.Get("p")
			if !ok {
				continue
			}
			p, ok := raw.(dbtype.Path)
			if !ok {
				return nil, fmt.Errorf("expected path, got %T", raw)
			}
			paths = append(paths, convertPath(p))
		}
		return paths, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]graphstore.Path), nil
}

func (s *session) FullPaths(ctx context.Context) ([]graphstore.Path, error) {
	return s.readPaths(ctx, fullCypher, nil)
}

func (s *session) NeighborhoodPaths(ctx context.Context, phone string) ([]graphstore.Path, error) {
	return s.readPaths(ctx, neighborhoodCypher, map[string]any{"phone": phone})
}

func (s *session) ShortestPaths(ctx context.Context, startPhone, endPhone string) ([]graphstore.Path, error) {
	if startPhone == endPhone {
		return s.readPaths(ctx, sameSubscriberCypher, map[string]any{"start": startPhone})
	}
	return s.readPaths(ctx, shortestPathsCypher, map[string]any{"start": startPhone, "end": endPhone})
}

func (s *session) OwnedPaths(ctx context.Context, owner string, listingSetIDs []string) ([]graphstore.Path, error) {
	if len(listingSetIDs) == 0 {
		return nil, nil
	}
	return s.readPaths(ctx, ownedCypher, map[string]any{
		"owner":           owner,
		"listing_set_ids": listingSetIDs,
	})
}

// writeRows runs a write query and returns how many records it produced.
func (s *session) writeRows(ctx context.Context, cypher string, params map[string]any) (int, error) {
	out, err := s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return len(records), nil
	})
	if err != nil {
		return 0, err
	}
	return out.(int), nil
}

func (s *session) IngestRecord(ctx context.Context, listingSetID string, rec schema.Record) error {
	n, err := s.writeRows(ctx, ingestCypher, map[string]any{
		"listing_set_id": listingSetID,
		"caller":         rec.Caller,
		"callee":         rec.Callee,
		"imei":           rec.IMEI,
		"tower_name":     rec.TowerName,
		"tower_long":     rec.TowerLongitude,
		"tower_lat":      rec.TowerLatitude,
		"type":           string(rec.Type),
		"timestamp":      rec.Timestamp.UTC(),
		"duration":       rec.Duration,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return schema.NotFoundf("listing set %s", listingSetID)
	}
	return nil
}

func (s *session) CreateListingSet(ctx context.Context, ls schema.ListingSet) error {
	var description any
	if ls.Description != nil {
		description = *ls.Description
	}
	n, err := s.writeRows(ctx, createListingSetCypher, map[string]any{
		"owner":       ls.OwnerUsername,
		"id":          ls.ID,
		"name":        ls.Name,
		"description": description,
		"created_at":  ls.CreatedAt.UTC(),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return schema.NotFoundf("user %s", ls.OwnerUsername)
	}
	return nil
}

func (s *session) ListingSetsByOwner(ctx context.Context, owner string) ([]schema.ListingSet, error) {
	nodes, err := s.readNodes(ctx, listingSetsByOwnerCypher, "ls", map[string]any{"owner": owner})
	if err != nil {
		return nil, err
	}
	sets := make([]schema.ListingSet, 0, len(nodes))
	for _, n := range nodes {
		sets = append(sets, listingSetFromProps(n.Props))
	}
	return sets, nil
}

func (s *session) CreateUser(ctx context.Context, u schema.User) error {
	_, err := s.writeRows(ctx, createUserCypher, map[string]any{
		"username":  u.Username,
		"full_name": u.FullName,
		"password":  u.PasswordHash,
		"role":      u.Role,
		"is_active": u.IsActive,
	})
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && neoErr.Code == constraintViolation {
		return fmt.Errorf("%s: %w", u.Username, schema.ErrUserExists)
	}
	return err
}

func (s *session) GetUser(ctx context.Context, username string) (schema.User, error) {
	nodes, err := s.readNodes(ctx, getUserCypher, "u", map[string]any{"username": username})
	if err != nil {
		return schema.User{}, err
	}
	if len(nodes) == 0 {
		return schema.User{}, schema.NotFoundf("user %s", username)
	}
	return userFromProps(nodes[0].Props), nil
}

func (s *session) ListUsers(ctx context.Context) ([]schema.User, error) {
	nodes, err := s.readNodes(ctx, listUsersCypher, "u", nil)
	if err != nil {
		return nil, err
	}
	users := make([]schema.User, 0, len(nodes))
	for _, n := range nodes {
		users = append(users, userFromProps(n.Props))
	}
	return users, nil
}

func (s *session) readNodes(ctx context.Context, cypher, column string, params map[string]any) ([]dbtype.Node, error) {
	out, err := s.sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		nodes := make([]dbtype.Node, 0, len(records))
		for _, rec := range records {
			raw, _ := rec.Get(column)
			if n, ok := raw.(dbtype.Node); ok {
				nodes = append(nodes, n)
			}
		}
		return nodes, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]dbtype.Node), nil
}

func listingSetFromProps(props map[string]any) schema.ListingSet {
	ls := schema.ListingSet{
		ID:            stringOf(props[schema.PropID]),
		Name:          stringOf(props[schema.PropName]),
		OwnerUsername: stringOf(props[schema.PropOwnerUsername]),
		CreatedAt:     timeOf(props[schema.PropCreatedAt]),
	}
	if d, ok := props[schema.PropDescription].(string); ok {
		ls.Description = &d
	}
	return ls
}

func userFromProps(props map[string]any) schema.User {
	active, _ := props[schema.PropIsActive].(bool)
	return schema.User{
		Username:     stringOf(props[schema.PropUsername]),
		FullName:     stringOf(props[schema.PropFullName]),
		PasswordHash: stringOf(props[schema.PropPassword]),
		Role:         stringOf(props[schema.PropRole]),
		IsActive:     active,
	}
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func timeOf(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case interface{ Time() time.Time }:
		return t.Time().UTC()
	default:
		return time.Time{}
	}
}
