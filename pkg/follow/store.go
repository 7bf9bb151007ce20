package follow

import "context"

// Store is the persistence contract for follow relations. Implementations
// must enforce uniqueness of the (follower, followable) pair and resolve a
// conflicting Create by returning the existing relation.
type Store interface {
	// Create finds or creates the relation for d's pair. created is false
	// when an existing relation was returned; its flags are left untouched.
	Create(ctx context.Context, d Draft) (rel *Relation, created bool, err error)
	Delete(ctx context.Context, id uint64) error
	UpdateFlag(ctx context.Context, id uint64, flag Flag, value bool) error
	Find(ctx context.Context, p Predicate, opts ListOptions) ([]Relation, error)
	// First returns nil, nil when nothing matches.
	First(ctx context.Context, p Predicate) (*Relation, error)
	Count(ctx context.Context, p Predicate) (int64, error)
	Exists(ctx context.Context, p Predicate) (bool, error)
	// DeleteInvolving removes every relation where ref is follower or followable.
	DeleteInvolving(ctx context.Context, ref EntityRef) (int64, error)
}
