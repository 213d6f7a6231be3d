package embedded

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-commgraph/pkg/schema"
	"github.com/dd0wney/cluso-commgraph/pkg/storage"
)

// IngestRecord applies one row as a single transaction: merge both
// subscribers, the device and the tower, then create the Communication and
// its five edges.
func (s *session) IngestRecord(ctx context.Context, listingSetID string, rec schema.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	onCreateTower := make(map[string]storage.Value, 2)
	for key, raw := range map[string]any{
		schema.PropLongitude: rec.TowerLongitude,
		schema.PropLatitude:  rec.TowerLatitude,
	} {
		if raw == nil {
			continue
		}
		v, err := storage.ValueOf(raw)
		if err != nil {
			return &schema.ValidationError{Field: key, Reason: err.Error()}
		}
		onCreateTower[key] = v
	}

	return s.store.gs.Update(func(tx *storage.Tx) error {
		ls, ok := tx.FindNode(schema.LabelListingSet, schema.PropID, storage.StringValue(listingSetID))
		if !ok {
			return schema.NotFoundf("listing set %s", listingSetID)
		}

		caller, _, err := tx.Merge(schema.LabelSubscriber, schema.PropPhoneNumber, storage.StringValue(rec.Caller), nil)
		if err != nil {
			return err
		}
		callee, _, err := tx.Merge(schema.LabelSubscriber, schema.PropPhoneNumber, storage.StringValue(rec.Callee), nil)
		if err != nil {
			return err
		}
		device, _, err := tx.Merge(schema.LabelDevice, schema.PropIMEI, storage.StringValue(rec.IMEI), nil)
		if err != nil {
			return err
		}
		tower, _, err := tx.Merge(schema.LabelCellTower, schema.PropName, storage.StringValue(rec.TowerName), onCreateTower)
		if err != nil {
			return err
		}

		comm, err := tx.CreateNode([]string{schema.LabelCommunication}, map[string]storage.Value{
			schema.PropType:      storage.StringValue(string(rec.Type)),
			schema.PropTimestamp: storage.TimestampValue(rec.Timestamp),
			schema.PropDuration:  storage.StringValue(rec.Duration),
		})
		if err != nil {
			return err
		}

		links := []struct {
			from, to uint64
			rel      string
		}{
			{caller.ID, comm.ID, schema.RelInitiated},
			{comm.ID, callee.ID, schema.RelIsDirectedTo},
			{comm.ID, device.ID, schema.RelUsedDevice},
			{comm.ID, tower.ID, schema.RelRoutedThrough},
			{comm.ID, ls.ID, schema.RelPartOf},
		}
		for _, l := range links {
			if _, err := tx.CreateEdge(l.from, l.to, l.rel, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *session) CreateListingSet(ctx context.Context, ls schema.ListingSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	props := map[string]storage.Value{
		schema.PropID:            storage.StringValue(ls.ID),
		schema.PropName:          storage.StringValue(ls.Name),
		schema.PropOwnerUsername: storage.StringValue(ls.OwnerUsername),
		schema.PropCreatedAt:     storage.TimestampValue(ls.CreatedAt),
	}
	if ls.Description != nil {
		props[schema.PropDescription] = storage.StringValue(*ls.Description)
	}

	return s.store.gs.Update(func(tx *storage.Tx) error {
		owner, ok := tx.FindNode(schema.LabelUser, schema.PropUsername, storage.StringValue(ls.OwnerUsername))
		if !ok {
			return schema.NotFoundf("user %s", ls.OwnerUsername)
		}
		node, err := tx.CreateNode([]string{schema.LabelListingSet}, props)
		if err != nil {
			return fmt.Errorf("create listing set: %w", err)
		}
		_, err = tx.CreateEdge(owner.ID, node.ID, schema.RelOwns, nil)
		return err
	})
}

func (s *session) ListingSetsByOwner(ctx context.Context, owner string) ([]schema.ListingSet, error) {
	sets := []schema.ListingSet{}
	err := s.store.gs.View(func(r storage.Reader) error {
		user, ok := r.FindNode(schema.LabelUser, schema.PropUsername, storage.StringValue(owner))
		if !ok {
			return nil
		}
		for _, e := range r.OutgoingEdges(user.ID) {
			if e.Type != schema.RelOwns {
				continue
			}
			if n, ok := r.Node(e.ToNodeID); ok && n.HasLabel(schema.LabelListingSet) {
				sets = append(sets, listingSetFromNode(n))
			}
		}
		return nil
	})
	sort.SliceStable(sets, func(i, j int) bool {
		return sets[i].CreatedAt.After(sets[j].CreatedAt)
	})
	return sets, err
}

func listingSetFromNode(n *storage.Node) schema.ListingSet {
	ls := schema.ListingSet{
		ID:            stringProp(n, schema.PropID),
		Name:          stringProp(n, schema.PropName),
		OwnerUsername: stringProp(n, schema.PropOwnerUsername),
	}
	if v, ok := n.Properties[schema.PropDescription]; ok {
		d, _ := v.AsString()
		ls.Description = &d
	}
	if v, ok := n.Properties[schema.PropCreatedAt]; ok {
		ls.CreatedAt, _ = v.AsTimestamp()
	}
	return ls
}

func (s *session) CreateUser(ctx context.Context, u schema.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.store.gs.Update(func(tx *storage.Tx) error {
		_, err := tx.CreateNode([]string{schema.LabelUser}, map[string]storage.Value{
			schema.PropUsername: storage.StringValue(u.Username),
			schema.PropFullName: storage.StringValue(u.FullName),
			schema.PropPassword: storage.StringValue(u.PasswordHash),
			schema.PropRole:     storage.StringValue(u.Role),
			schema.PropIsActive: storage.BoolValue(u.IsActive),
		})
		return err
	})
	if errors.Is(err, storage.ErrUniqueViolation) {
		return fmt.Errorf("%s: %w", u.Username, schema.ErrUserExists)
	}
	return err
}

func (s *session) GetUser(ctx context.Context, username string) (schema.User, error) {
	var u schema.User
	err := s.store.gs.View(func(r storage.Reader) error {
		n, ok := r.FindNode(schema.LabelUser, schema.PropUsername, storage.StringValue(username))
		if !ok {
			return schema.NotFoundf("user %s", username)
		}
		u = userFromNode(n)
		return nil
	})
	return u, err
}

func (s *session) ListUsers(ctx context.Context) ([]schema.User, error) {
	users := []schema.User{}
	err := s.store.gs.View(func(r storage.Reader) error {
		for _, n := range r.NodesByLabel(schema.LabelUser) {
			users = append(users, userFromNode(n))
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, err
}

func userFromNode(n *storage.Node) schema.User {
	return schema.User{
		Username:     stringProp(n, schema.PropUsername),
		FullName:     stringProp(n, schema.PropFullName),
		PasswordHash: stringProp(n, schema.PropPassword),
		Role:         stringProp(n, schema.PropRole),
		IsActive:     boolProp(n, schema.PropIsActive),
	}
}
