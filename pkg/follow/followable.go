package follow

import (
	"context"
	"fmt"

	pkglog "github.com/weiawesome/follow-graph/pkg/log"
)

// FollowableFacet is the capability set of an entity that can be followed.
type FollowableFacet interface {
	FollowersCount(ctx context.Context) (int64, error)
	BlockedFollowersCount(ctx context.Context) (int64, error)
	UnconfirmedFollowersCount(ctx context.Context) (int64, error)
	Followers(ctx context.Context, opts ListOptions) ([]EntityRef, error)
	FollowersWithRights(ctx context.Context, opts ListOptions) ([]EntityRef, error)
	FollowersUnconfirmed(ctx context.Context, opts ListOptions) ([]EntityRef, error)
	Blocks(ctx context.Context, opts ListOptions) ([]EntityRef, error)
	FollowersByType(ctx context.Context, t TypeTag, opts ListOptions) ([]EntityRef, error)
	FollowersByTypeUnconfirmed(ctx context.Context, t TypeTag, opts ListOptions) ([]EntityRef, error)
	FollowersByTypeWithRights(ctx context.Context, t TypeTag, opts ListOptions) ([]EntityRef, error)
	FollowersByTypeCount(ctx context.Context, t TypeTag) (int64, error)
	AllFollowersByType(ctx context.Context, t TypeTag) ([]EntityRef, error)
	FollowedBy(ctx context.Context, follower Entity) (bool, error)
	HasRights(ctx context.Context, follower Entity) (bool, error)
	Block(ctx context.Context, follower Entity) error
	Unblock(ctx context.Context, follower Entity) error
	Confirm(ctx context.Context, follower Entity) error
	GiveRights(ctx context.Context, follower Entity) error
	RemoveRights(ctx context.Context, follower Entity) error
	GetFollowFor(ctx context.Context, follower Entity) (*Relation, error)
}

// Followable is the facet of an entity acting as the followed party.
type Followable struct {
	store Store
	self  EntityRef
}

var _ FollowableFacet = (*Followable)(nil)

// Ref returns the entity this facet acts for.
func (f *Followable) Ref() EntityRef {
	return f.self
}

func (f *Followable) mine() Predicate {
	return ForFollowable(f.self)
}

// FollowersCount returns the number of active followers.
func (f *Followable) FollowersCount(ctx context.Context) (int64, error) {
	return f.store.Count(ctx, All(Active(), f.mine()))
}

func (f *Followable) BlockedFollowersCount(ctx context.Context) (int64, error) {
	return f.store.Count(ctx, All(BlockedOnly(), f.mine()))
}

func (f *Followable) UnconfirmedFollowersCount(ctx context.Context) (int64, error) {
	return f.store.Count(ctx, All(Unblocked(), UnconfirmedOnly(), f.mine()))
}

func (f *Followable) Followers(ctx context.Context, opts ListOptions) ([]EntityRef, error) {
	return f.followers(ctx, All(Active(), f.mine()), opts)
}

func (f *Followable) FollowersWithRights(ctx context.Context, opts ListOptions) ([]EntityRef, error) {
	return f.followers(ctx, All(Active(), WithRights(), f.mine()), opts)
}

func (f *Followable) FollowersUnconfirmed(ctx context.Context, opts ListOptions) ([]EntityRef, error) {
	return f.followers(ctx, All(Unblocked(), UnconfirmedOnly(), f.mine()), opts)
}

// Blocks lists the followers this entity has blocked.
func (f *Followable) Blocks(ctx context.Context, opts ListOptions) ([]EntityRef, error) {
	return f.followers(ctx, All(BlockedOnly(), f.mine()), opts)
}

func (f *Followable) FollowersByType(ctx context.Context, t TypeTag, opts ListOptions) ([]EntityRef, error) {
	return f.followers(ctx, All(Active(), f.mine(), ForFollowerType(t)), opts)
}

func (f *Followable) FollowersByTypeUnconfirmed(ctx context.Context, t TypeTag, opts ListOptions) ([]EntityRef, error) {
	return f.followers(ctx, All(Unblocked(), UnconfirmedOnly(), f.mine(), ForFollowerType(t)), opts)
}

func (f *Followable) FollowersByTypeWithRights(ctx context.Context, t TypeTag, opts ListOptions) ([]EntityRef, error) {
	return f.followers(ctx, All(Active(), WithRights(), f.mine(), ForFollowerType(t)), opts)
}

func (f *Followable) FollowersByTypeCount(ctx context.Context, t TypeTag) (int64, error) {
	return f.store.Count(ctx, All(Active(), f.mine(), ForFollowerType(t)))
}

// AllFollowersByType lists followers of type t regardless of relation state.
func (f *Followable) AllFollowersByType(ctx context.Context, t TypeTag) ([]EntityRef, error) {
	return f.followers(ctx, All(f.mine(), ForFollowerType(t)), ListOptions{})
}

func (f *Followable) FollowedBy(ctx context.Context, follower Entity) (bool, error) {
	return f.store.Exists(ctx, All(Active(), f.mine(), ForFollower(follower.FollowRef())))
}

// HasRights reports whether follower holds rights on an active relation.
// A stored rights flag on a blocked or pending relation does not count.
func (f *Followable) HasRights(ctx context.Context, follower Entity) (bool, error) {
	return f.store.Exists(ctx, All(Active(), WithRights(), f.mine(), ForFollower(follower.FollowRef())))
}

// Block marks the relation with follower as blocked. Without an existing
// relation a blocked one is created, so a later Follow by follower stays
// inactive.
func (f *Followable) Block(ctx context.Context, follower Entity) error {
	ref := follower.FollowRef()
	if ref == f.self {
		l := pkglog.Ctx(ctx)
		l.Debug().Str(pkglog.FieldFollowable, f.self.String()).Msg("self block ignored")
		return nil
	}
	rel, _, err := f.store.Create(ctx, Draft{Follower: ref, Followable: f.self, Blocked: true})
	if err != nil {
		return fmt.Errorf("block %s for %s: %w", ref, f.self, err)
	}
	if rel.Blocked {
		return nil
	}
	return f.set(ctx, rel, FlagBlocked, true)
}

// Unblock deletes the relation with follower in whatever state it is.
func (f *Followable) Unblock(ctx context.Context, follower Entity) error {
	rel, err := f.GetFollowFor(ctx, follower)
	if err != nil || rel == nil {
		return err
	}
	if err := f.store.Delete(ctx, rel.ID); err != nil {
		return fmt.Errorf("delete follow %d: %w", rel.ID, err)
	}
	return nil
}

// Confirm approves a pending, unblocked relation with follower.
func (f *Followable) Confirm(ctx context.Context, follower Entity) error {
	rel, err := f.store.First(ctx, All(Unblocked(), f.mine(), ForFollower(follower.FollowRef())))
	if err != nil || rel == nil || !rel.Unconfirmed {
		return err
	}
	return f.set(ctx, rel, FlagUnconfirmed, false)
}

// GiveRights grants rights on an active relation with follower.
func (f *Followable) GiveRights(ctx context.Context, follower Entity) error {
	return f.setRights(ctx, follower, true)
}

// RemoveRights revokes rights on an active relation with follower.
func (f *Followable) RemoveRights(ctx context.Context, follower Entity) error {
	return f.setRights(ctx, follower, false)
}

func (f *Followable) setRights(ctx context.Context, follower Entity, value bool) error {
	rel, err := f.store.First(ctx, All(Active(), f.mine(), ForFollower(follower.FollowRef())))
	if err != nil || rel == nil || rel.HasRights == value {
		return err
	}
	return f.set(ctx, rel, FlagHasRights, value)
}

// GetFollowFor returns the relation with follower in any state, or nil.
func (f *Followable) GetFollowFor(ctx context.Context, follower Entity) (*Relation, error) {
	return f.store.First(ctx, All(f.mine(), ForFollower(follower.FollowRef())))
}

func (f *Followable) set(ctx context.Context, rel *Relation, flag Flag, value bool) error {
	if err := f.store.UpdateFlag(ctx, rel.ID, flag, value); err != nil {
		return fmt.Errorf("set %s=%t on follow %d: %w", flag, value, rel.ID, err)
	}
	return nil
}

func (f *Followable) followers(ctx context.Context, p Predicate, opts ListOptions) ([]EntityRef, error) {
	rels, err := f.store.Find(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	return refsOf(rels, followerOf), nil
}
