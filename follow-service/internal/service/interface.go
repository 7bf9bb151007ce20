package service

import (
	"context"
	"errors"

	"github.com/weiawesome/follow-graph/follow-service/internal/consumer"
	"github.com/weiawesome/follow-graph/pkg/follow"
	"github.com/weiawesome/follow-graph/pkg/follow/resolver"
)

var (
	ErrUnknownType   = errors.New("entity type is not registered")
	ErrNotFollower   = errors.New("entity type cannot follow")
	ErrNotFollowable = errors.New("entity type cannot be followed")
)

// FollowService defines the follow-graph operations exposed by the service.
// Mutations take the acting side first: the follower for follow operations,
// the followable for block, confirm and rights operations.
type FollowService interface {
	Follow(ctx context.Context, follower, followable follow.EntityRef, unconfirmed bool) (*follow.Relation, error)
	StopFollowing(ctx context.Context, follower, followable follow.EntityRef) error
	GetFollow(ctx context.Context, follower, followable follow.EntityRef) (*follow.Relation, error)

	Block(ctx context.Context, followable, follower follow.EntityRef) error
	Unblock(ctx context.Context, followable, follower follow.EntityRef) error
	Confirm(ctx context.Context, followable, follower follow.EntityRef) error
	GiveRights(ctx context.Context, followable, follower follow.EntityRef) error
	RemoveRights(ctx context.Context, followable, follower follow.EntityRef) error
	GetFollowFor(ctx context.Context, followable, follower follow.EntityRef) (*follow.Relation, error)

	FollowersCount(ctx context.Context, followable follow.EntityRef) (int64, error)
	Query(ctx context.Context, self follow.EntityRef, request string, opts follow.ListOptions) (*resolver.Result, error)
	Purge(ctx context.Context, ref follow.EntityRef) (int64, error)

	HandleEntityEvent(ctx context.Context, event *consumer.EntityEvent) error
}
