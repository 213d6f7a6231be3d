package listings

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/graphstore/embedded"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newRegistry(t *testing.T, users ...string) *Registry {
	t.Helper()
	ctx := context.Background()
	store := embedded.NewMemory()
	t.Cleanup(func() { store.Close(ctx) })

	require.NoError(t, graphstore.WithSession(ctx, store, func(s graphstore.Session) error {
		for _, u := range users {
			if err := s.CreateUser(ctx, schema.User{Username: u, Role: schema.RoleAnalyst, IsActive: true}); err != nil {
				return err
			}
		}
		return nil
	}))

	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	n := 0
	return NewRegistry(store, nil,
		WithClock(clock.now),
		WithIDFunc(func() string { n++; return fmt.Sprintf("ls-%d", n) }),
	)
}

func TestCreate(t *testing.T) {
	reg := newRegistry(t, "alice")
	desc := "March exports"

	ls, err := reg.Create(context.Background(), schema.ListingSetCreate{Name: " March ", Description: &desc}, "alice")
	require.NoError(t, err)

	assert.Equal(t, "ls-1", ls.ID)
	assert.Equal(t, "March", ls.Name)
	assert.Equal(t, &desc, ls.Description)
	assert.Equal(t, "alice", ls.OwnerUsername)
	assert.Equal(t, time.UTC, ls.CreatedAt.Location())
}

func TestCreate_UnknownOwner(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.Create(context.Background(), schema.ListingSetCreate{Name: "x"}, "ghost")
	assert.True(t, errors.Is(err, schema.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestCreate_Invalid(t *testing.T) {
	reg := newRegistry(t, "alice")

	_, err := reg.Create(context.Background(), schema.ListingSetCreate{Name: ""}, "alice")
	assert.ErrorIs(t, err, schema.ErrValidation)
}

func TestListByOwner(t *testing.T) {
	reg := newRegistry(t, "alice", "bob")
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		_, err := reg.Create(ctx, schema.ListingSetCreate{Name: name}, "alice")
		require.NoError(t, err)
	}
	_, err := reg.Create(ctx, schema.ListingSetCreate{Name: "other"}, "bob")
	require.NoError(t, err)

	sets, err := reg.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{sets[0].Name, sets[1].Name, sets[2].Name})

	none, err := reg.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
