package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/follow-graph/follow-service/internal/consumer"
	"github.com/weiawesome/follow-graph/follow-service/internal/store"
	"github.com/weiawesome/follow-graph/pkg/follow"
	"github.com/weiawesome/follow-graph/pkg/follow/followtest"
	"github.com/weiawesome/follow-graph/pkg/follow/resolver"
)

var (
	alice = follow.Ref("User", "alice")
	bob   = follow.Ref("User", "bob")
	acme  = follow.Ref("Org", "acme")
	post  = follow.Ref("Post", "1")
)

type fixture struct {
	svc    FollowService
	graph  *follow.Graph
	counts *store.RedisCountStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	counts, err := store.NewRedisCountStore(mr.Addr(), "", 0, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { counts.Close() })

	reg := follow.NewRegistry()
	reg.Register("User", follow.RoleBoth)
	reg.Register("Org", follow.RoleFollowable)
	reg.Register("Post", follow.RoleFollower)

	graph := follow.New(followtest.NewStore(t))
	return &fixture{
		svc:    NewFollowService(graph, reg, counts),
		graph:  graph,
		counts: counts,
	}
}

func TestFollowChecksRoles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Follow(ctx, acme, alice, false)
	assert.ErrorIs(t, err, ErrNotFollower)

	_, err = f.svc.Follow(ctx, alice, post, false)
	assert.ErrorIs(t, err, ErrNotFollowable)

	_, err = f.svc.Follow(ctx, alice, follow.Ref("Widget", "w"), false)
	assert.ErrorIs(t, err, ErrUnknownType)

	rel, err := f.svc.Follow(ctx, post, acme, false)
	require.NoError(t, err)
	assert.Equal(t, post, rel.Follower)
}

func TestFollowersCountIsCachedAndInvalidated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Follow(ctx, alice, acme, false)
	require.NoError(t, err)

	n, err := f.svc.FollowersCount(ctx, acme)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	cached, found, err := f.counts.GetFollowersCount(ctx, acme.String())
	require.NoError(t, err)
	require.True(t, found)
	assert.EqualValues(t, 1, cached)

	hot, err := f.counts.GetTopHotKeys(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{acme.String()}, hot)

	_, err = f.svc.Follow(ctx, bob, acme, false)
	require.NoError(t, err)
	_, found, err = f.counts.GetFollowersCount(ctx, acme.String())
	require.NoError(t, err)
	assert.False(t, found, "follow must drop the cached count")

	n, err = f.svc.FollowersCount(ctx, acme)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, f.svc.Block(ctx, acme, bob))
	n, err = f.svc.FollowersCount(ctx, acme)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestConfirmationAndRights(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rel, err := f.svc.Follow(ctx, alice, acme, true)
	require.NoError(t, err)
	assert.True(t, rel.Unconfirmed)

	require.NoError(t, f.svc.GiveRights(ctx, acme, alice))
	got, err := f.svc.GetFollowFor(ctx, acme, alice)
	require.NoError(t, err)
	assert.False(t, got.HasRights, "rights need a confirmed relation")

	require.NoError(t, f.svc.Confirm(ctx, acme, alice))
	require.NoError(t, f.svc.GiveRights(ctx, acme, alice))
	got, err = f.svc.GetFollow(ctx, alice, acme)
	require.NoError(t, err)
	assert.True(t, got.Active())
	assert.True(t, got.HasRights)

	require.NoError(t, f.svc.RemoveRights(ctx, acme, alice))
	got, err = f.svc.GetFollowFor(ctx, acme, alice)
	require.NoError(t, err)
	assert.False(t, got.HasRights)
}

func TestStopFollowingKeepsBlock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.Block(ctx, acme, alice))
	require.NoError(t, f.svc.StopFollowing(ctx, alice, acme))

	blocked, err := f.graph.Followable(acme).BlockedFollowersCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, blocked)

	require.NoError(t, f.svc.Unblock(ctx, acme, alice))
	rel, err := f.svc.GetFollowFor(ctx, acme, alice)
	require.NoError(t, err)
	assert.Nil(t, rel)
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Follow(ctx, alice, acme, false)
	require.NoError(t, err)
	_, err = f.svc.Follow(ctx, bob, acme, true)
	require.NoError(t, err)

	res, err := f.svc.Query(ctx, acme, "unconfirmed_users_followers", follow.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []follow.EntityRef{bob}, res.Entities)

	res, err = f.svc.Query(ctx, alice, "following_orgs", follow.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []follow.EntityRef{acme}, res.Entities)

	_, err = f.svc.Query(ctx, acme, "following_users", follow.ListOptions{})
	assert.ErrorIs(t, err, ErrNotFollower)

	_, err = f.svc.Query(ctx, acme, "loudest_users", follow.ListOptions{})
	assert.ErrorIs(t, err, resolver.ErrUnsupportedRequest)
}

func TestDeletedEntityEventPurgesRelations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Follow(ctx, alice, acme, false)
	require.NoError(t, err)
	_, err = f.svc.Follow(ctx, bob, alice, false)
	require.NoError(t, err)

	n, err := f.svc.FollowersCount(ctx, acme)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, f.svc.HandleEntityEvent(ctx, &consumer.EntityEvent{Type: "User", ID: "alice", Op: consumer.OpUpdated}))
	n, err = f.svc.FollowersCount(ctx, acme)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, f.svc.HandleEntityEvent(ctx, &consumer.EntityEvent{Type: "User", ID: "alice", Op: consumer.OpDeleted}))

	n, err = f.svc.FollowersCount(ctx, acme)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "purge must drop the followed entity's cached count")

	left, err := f.graph.Store().Count(ctx, follow.All())
	require.NoError(t, err)
	assert.Zero(t, left)
}
