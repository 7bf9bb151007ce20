package follow

import (
	"context"
	"fmt"

	pkglog "github.com/weiawesome/follow-graph/pkg/log"
)

// FollowerFacet is the capability set of an entity that can follow others.
type FollowerFacet interface {
	Follow(ctx context.Context, followable Entity) (*Relation, error)
	FollowAsUnconfirmed(ctx context.Context, followable Entity) (*Relation, error)
	StopFollowing(ctx context.Context, followable Entity) error
	Following(ctx context.Context, followable Entity) (bool, error)
	HasRightsFor(ctx context.Context, followable Entity) (bool, error)
	UnconfirmedFor(ctx context.Context, followable Entity) (bool, error)
	FollowCount(ctx context.Context) (int64, error)
	AllFollows(ctx context.Context, opts ListOptions) ([]Relation, error)
	AllFollowing(ctx context.Context, opts ListOptions) ([]EntityRef, error)
	FollowsByType(ctx context.Context, t TypeTag, opts ListOptions) ([]Relation, error)
	FollowingByType(ctx context.Context, t TypeTag, opts ListOptions) ([]EntityRef, error)
	FollowingByTypeWithRights(ctx context.Context, t TypeTag, opts ListOptions) ([]EntityRef, error)
	FollowingByTypeCount(ctx context.Context, t TypeTag) (int64, error)
	GetFollow(ctx context.Context, followable Entity) (*Relation, error)
}

// Follower is the facet of an entity acting as follower.
type Follower struct {
	store Store
	self  EntityRef
}

var _ FollowerFacet = (*Follower)(nil)

// Ref returns the entity this facet acts for.
func (f *Follower) Ref() EntityRef {
	return f.self
}

func (f *Follower) mine() Predicate {
	return ForFollower(f.self)
}

// Follow creates the relation to followable, or returns the existing one.
// An existing relation keeps its state: a block placed by followable stays in
// force. Following oneself is ignored and yields nil.
func (f *Follower) Follow(ctx context.Context, followable Entity) (*Relation, error) {
	return f.follow(ctx, followable.FollowRef(), false)
}

// FollowAsUnconfirmed is Follow with the relation left pending approval by
// followable. An existing relation is moved back to pending.
func (f *Follower) FollowAsUnconfirmed(ctx context.Context, followable Entity) (*Relation, error) {
	rel, err := f.follow(ctx, followable.FollowRef(), true)
	if err != nil || rel == nil || rel.Unconfirmed {
		return rel, err
	}
	if err := f.store.UpdateFlag(ctx, rel.ID, FlagUnconfirmed, true); err != nil {
		return nil, fmt.Errorf("mark follow %d unconfirmed: %w", rel.ID, err)
	}
	rel.Unconfirmed = true
	return rel, nil
}

func (f *Follower) follow(ctx context.Context, target EntityRef, unconfirmed bool) (*Relation, error) {
	if target == f.self {
		l := pkglog.Ctx(ctx)
		l.Debug().Str(pkglog.FieldFollower, f.self.String()).Msg("self follow ignored")
		return nil, nil
	}
	rel, _, err := f.store.Create(ctx, Draft{Follower: f.self, Followable: target, Unconfirmed: unconfirmed})
	if err != nil {
		return nil, fmt.Errorf("follow %s -> %s: %w", f.self, target, err)
	}
	return rel, nil
}

// StopFollowing deletes the unblocked relation to followable, if any. A
// blocked relation cannot be removed by the follower.
func (f *Follower) StopFollowing(ctx context.Context, followable Entity) error {
	rel, err := f.GetFollow(ctx, followable)
	if err != nil || rel == nil {
		return err
	}
	if err := f.store.Delete(ctx, rel.ID); err != nil {
		return fmt.Errorf("delete follow %d: %w", rel.ID, err)
	}
	return nil
}

// Following reports whether an active relation to followable exists.
func (f *Follower) Following(ctx context.Context, followable Entity) (bool, error) {
	return f.store.Exists(ctx, All(Active(), f.mine(), ForFollowable(followable.FollowRef())))
}

// HasRightsFor reports whether followable granted rights on an active relation.
func (f *Follower) HasRightsFor(ctx context.Context, followable Entity) (bool, error) {
	return f.store.Exists(ctx, All(Active(), WithRights(), f.mine(), ForFollowable(followable.FollowRef())))
}

// UnconfirmedFor reports whether a relation to followable awaits approval.
func (f *Follower) UnconfirmedFor(ctx context.Context, followable Entity) (bool, error) {
	return f.store.Exists(ctx, All(Unblocked(), UnconfirmedOnly(), f.mine(), ForFollowable(followable.FollowRef())))
}

// FollowCount returns the number of active relations.
func (f *Follower) FollowCount(ctx context.Context) (int64, error) {
	return f.store.Count(ctx, All(Active(), f.mine()))
}

func (f *Follower) AllFollows(ctx context.Context, opts ListOptions) ([]Relation, error) {
	return f.store.Find(ctx, All(Active(), f.mine()), opts)
}

func (f *Follower) AllFollowing(ctx context.Context, opts ListOptions) ([]EntityRef, error) {
	return f.followables(ctx, All(Active(), f.mine()), opts)
}

func (f *Follower) FollowsByType(ctx context.Context, t TypeTag, opts ListOptions) ([]Relation, error) {
	return f.store.Find(ctx, All(Active(), f.mine(), ForFollowableType(t)), opts)
}

func (f *Follower) FollowingByType(ctx context.Context, t TypeTag, opts ListOptions) ([]EntityRef, error) {
	return f.followables(ctx, All(Active(), f.mine(), ForFollowableType(t)), opts)
}

func (f *Follower) FollowingByTypeWithRights(ctx context.Context, t TypeTag, opts ListOptions) ([]EntityRef, error) {
	return f.followables(ctx, All(Active(), WithRights(), f.mine(), ForFollowableType(t)), opts)
}

func (f *Follower) FollowingByTypeCount(ctx context.Context, t TypeTag) (int64, error) {
	return f.store.Count(ctx, All(Active(), f.mine(), ForFollowableType(t)))
}

// GetFollow returns the unblocked relation to followable in any confirmation
// state, or nil.
func (f *Follower) GetFollow(ctx context.Context, followable Entity) (*Relation, error) {
	return f.store.First(ctx, All(Unblocked(), f.mine(), ForFollowable(followable.FollowRef())))
}

func (f *Follower) followables(ctx context.Context, p Predicate, opts ListOptions) ([]EntityRef, error) {
	rels, err := f.store.Find(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	return refsOf(rels, followableOf), nil
}
