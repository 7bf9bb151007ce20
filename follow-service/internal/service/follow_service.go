package service

import (
	"context"
	"fmt"

	"github.com/weiawesome/follow-graph/follow-service/internal/consumer"
	"github.com/weiawesome/follow-graph/follow-service/internal/store"
	"github.com/weiawesome/follow-graph/pkg/follow"
	"github.com/weiawesome/follow-graph/pkg/follow/resolver"
	pkglog "github.com/weiawesome/follow-graph/pkg/log"
)

// followService implements FollowService.
type followService struct {
	graph    *follow.Graph
	registry *follow.Registry
	resolver *resolver.Resolver
	counts   store.CountStore
}

// NewFollowService creates a new FollowService instance.
func NewFollowService(graph *follow.Graph, registry *follow.Registry, counts store.CountStore) FollowService {
	return &followService{
		graph:    graph,
		registry: registry,
		resolver: resolver.New(graph, registry),
		counts:   counts,
	}
}

func (s *followService) check(follower, followable follow.EntityRef) error {
	if err := s.require(follower, follow.RoleFollower, ErrNotFollower); err != nil {
		return err
	}
	return s.require(followable, follow.RoleFollowable, ErrNotFollowable)
}

func (s *followService) require(ref follow.EntityRef, role follow.Role, denied error) error {
	roles, ok := s.registry.Roles(ref.Type)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, ref.Type)
	}
	if !roles.Has(role) {
		return fmt.Errorf("%w: %s", denied, ref.Type)
	}
	return nil
}

// invalidate drops the cached followers count of followable after a mutation.
func (s *followService) invalidate(ctx context.Context, followable follow.EntityRef) {
	if err := s.counts.InvalidateFollowersCount(ctx, followable.String()); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str(pkglog.FieldFollowable, followable.String()).Msg("failed to invalidate followers count")
	}
}

// mutate runs op after validating the pair and invalidates the count cache.
func (s *followService) mutate(ctx context.Context, follower, followable follow.EntityRef, what string, op func() error) error {
	if err := s.check(follower, followable); err != nil {
		return err
	}
	if err := op(); err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).
			Str(pkglog.FieldFollower, follower.String()).
			Str(pkglog.FieldFollowable, followable.String()).
			Msgf("failed to %s", what)
		return err
	}
	s.invalidate(ctx, followable)
	return nil
}

// Follow creates (or returns) the relation from follower to followable.
func (s *followService) Follow(ctx context.Context, follower, followable follow.EntityRef, unconfirmed bool) (*follow.Relation, error) {
	var rel *follow.Relation
	err := s.mutate(ctx, follower, followable, "follow", func() (err error) {
		f := s.graph.Follower(follower)
		if unconfirmed {
			rel, err = f.FollowAsUnconfirmed(ctx, followable)
		} else {
			rel, err = f.Follow(ctx, followable)
		}
		return err
	})
	return rel, err
}

func (s *followService) StopFollowing(ctx context.Context, follower, followable follow.EntityRef) error {
	return s.mutate(ctx, follower, followable, "stop following", func() error {
		return s.graph.Follower(follower).StopFollowing(ctx, followable)
	})
}

func (s *followService) GetFollow(ctx context.Context, follower, followable follow.EntityRef) (*follow.Relation, error) {
	if err := s.check(follower, followable); err != nil {
		return nil, err
	}
	return s.graph.Follower(follower).GetFollow(ctx, followable)
}

func (s *followService) Block(ctx context.Context, followable, follower follow.EntityRef) error {
	return s.mutate(ctx, follower, followable, "block", func() error {
		return s.graph.Followable(followable).Block(ctx, follower)
	})
}

func (s *followService) Unblock(ctx context.Context, followable, follower follow.EntityRef) error {
	return s.mutate(ctx, follower, followable, "unblock", func() error {
		return s.graph.Followable(followable).Unblock(ctx, follower)
	})
}

func (s *followService) Confirm(ctx context.Context, followable, follower follow.EntityRef) error {
	return s.mutate(ctx, follower, followable, "confirm", func() error {
		return s.graph.Followable(followable).Confirm(ctx, follower)
	})
}

func (s *followService) GiveRights(ctx context.Context, followable, follower follow.EntityRef) error {
	return s.mutate(ctx, follower, followable, "give rights", func() error {
		return s.graph.Followable(followable).GiveRights(ctx, follower)
	})
}

func (s *followService) RemoveRights(ctx context.Context, followable, follower follow.EntityRef) error {
	return s.mutate(ctx, follower, followable, "remove rights", func() error {
		return s.graph.Followable(followable).RemoveRights(ctx, follower)
	})
}

func (s *followService) GetFollowFor(ctx context.Context, followable, follower follow.EntityRef) (*follow.Relation, error) {
	if err := s.check(follower, followable); err != nil {
		return nil, err
	}
	return s.graph.Followable(followable).GetFollowFor(ctx, follower)
}

// FollowersCount returns the number of active followers of followable.
// It checks Redis first; on miss it queries the DB, populates Redis, and records a hot key access.
func (s *followService) FollowersCount(ctx context.Context, followable follow.EntityRef) (int64, error) {
	if err := s.require(followable, follow.RoleFollowable, ErrNotFollowable); err != nil {
		return 0, err
	}

	l := pkglog.Ctx(ctx)
	key := followable.String()

	// Always record access for hot key tracking (best-effort)
	if err := s.counts.RecordAccess(ctx, key); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldFollowable, key).Msg("failed to record hot key access")
	}

	count, found, err := s.counts.GetFollowersCount(ctx, key)
	if err != nil {
		l.Warn().Err(err).Str(pkglog.FieldFollowable, key).Msg("redis get followers count failed, falling back to db")
	}
	if found {
		return count, nil
	}

	count, err = s.graph.Followable(followable).FollowersCount(ctx)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldFollowable, key).Msg("failed to count followers")
		return 0, err
	}

	if err := s.counts.SetFollowersCount(ctx, key, count); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldFollowable, key).Msg("failed to set followers count in redis")
	}

	return count, nil
}

// Query runs a symbolic request such as "unconfirmed_user_followers" for self.
func (s *followService) Query(ctx context.Context, self follow.EntityRef, request string, opts follow.ListOptions) (*resolver.Result, error) {
	req, err := s.resolver.Parse(request)
	if err != nil {
		return nil, err
	}
	role, denied := follow.RoleFollowable, ErrNotFollowable
	if req.Side == resolver.SideFollower {
		role, denied = follow.RoleFollower, ErrNotFollower
	}
	if err := s.require(self, role, denied); err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, self, request, opts)
}

// Purge deletes every relation ref takes part in and drops the cached
// counts it affected.
func (s *followService) Purge(ctx context.Context, ref follow.EntityRef) (int64, error) {
	l := pkglog.Ctx(ctx)

	// Entities ref followed lose a follower; collect them before deleting.
	followed, err := s.graph.Store().Find(ctx, follow.ForFollower(ref), follow.ListOptions{})
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldEntity, ref.String()).Msg("failed to list relations before purge")
		return 0, err
	}

	n, err := s.graph.Purge(ctx, ref)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldEntity, ref.String()).Msg("failed to purge relations")
		return 0, err
	}

	keys := make([]string, 0, len(followed)+1)
	keys = append(keys, ref.String())
	for _, rel := range followed {
		keys = append(keys, rel.Followable.String())
	}
	if err := s.counts.InvalidateFollowersCount(ctx, keys...); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldEntity, ref.String()).Msg("failed to invalidate followers counts after purge")
	}

	l.Info().Str(pkglog.FieldEntity, ref.String()).Int64("deleted", n).Msg("entity relations purged")
	return n, nil
}

// HandleEntityEvent applies an entity lifecycle event. Only deletions
// affect the graph.
func (s *followService) HandleEntityEvent(ctx context.Context, event *consumer.EntityEvent) error {
	l := pkglog.Ctx(ctx)

	if event.Op != consumer.OpDeleted {
		l.Debug().Str("op", event.Op).Msg("entity event ignored")
		return nil
	}
	if event.Type == "" || event.ID == "" {
		l.Warn().Str("type", event.Type).Str("id", event.ID).Msg("entity event without reference, skipping")
		return nil
	}

	_, err := s.Purge(ctx, follow.Ref(follow.TypeTag(event.Type), event.ID))
	return err
}

// Ensure interface is satisfied at compile time.
var _ FollowService = (*followService)(nil)
