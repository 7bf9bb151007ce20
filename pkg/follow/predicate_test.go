package follow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weiawesome/follow-graph/pkg/follow"
)

func TestPredicateMatches(t *testing.T) {
	alice := follow.Ref("User", "alice")
	bob := follow.Ref("User", "bob")
	rel := follow.Relation{Follower: alice, Followable: bob, HasRights: true}

	tests := []struct {
		name string
		p    follow.Predicate
		want bool
	}{
		{"zero matches all", follow.Predicate{}, true},
		{"active", follow.Active(), true},
		{"with rights for follower", follow.All(follow.WithRights(), follow.ForFollower(alice)), true},
		{"blocked only", follow.BlockedOnly(), false},
		{"unconfirmed only", follow.UnconfirmedOnly(), false},
		{"other follower", follow.ForFollower(bob), false},
		{"followable type", follow.ForFollowableType("User"), true},
		{"follower type", follow.ForFollowerType("Org"), false},
		{"contradiction", follow.Unblocked().And(follow.BlockedOnly()), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Matches(rel))
		})
	}
}

func TestPredicateOrderDoesNotMatter(t *testing.T) {
	alice := follow.Ref("User", "alice")
	a := follow.All(follow.Confirmed(), follow.ForFollower(alice), follow.Unblocked())
	b := follow.All(follow.Unblocked(), follow.Confirmed(), follow.ForFollower(alice))

	rels := []follow.Relation{
		{Follower: alice},
		{Follower: alice, Blocked: true},
		{Follower: alice, Unconfirmed: true},
		{Follower: follow.Ref("User", "bob")},
	}
	for _, r := range rels {
		assert.Equal(t, a.Matches(r), b.Matches(r))
	}
	assert.ElementsMatch(t, a.Conditions(), b.Conditions())
}

func TestAndDoesNotAliasReceiver(t *testing.T) {
	base := follow.Unblocked()
	_ = base.And(follow.WithRights())
	_ = base.And(follow.Confirmed())
	assert.Len(t, base.Conditions(), 1)
}
