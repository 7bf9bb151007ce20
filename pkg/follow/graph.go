package follow

import (
	"context"
	"fmt"

	pkglog "github.com/weiawesome/follow-graph/pkg/log"
)

// Graph hands out follower and followable facets bound to a Store.
type Graph struct {
	store Store
}

// New creates a Graph over store.
func New(store Store) *Graph {
	return &Graph{store: store}
}

// Store returns the underlying relation store.
func (g *Graph) Store() Store {
	return g.store
}

// Follower returns the follower facet of e.
func (g *Graph) Follower(e Entity) *Follower {
	return &Follower{store: g.store, self: e.FollowRef()}
}

// Followable returns the followable facet of e.
func (g *Graph) Followable(e Entity) *Followable {
	return &Followable{store: g.store, self: e.FollowRef()}
}

// Purge deletes every relation e takes part in. Applications call it when e
// is destroyed.
func (g *Graph) Purge(ctx context.Context, e Entity) (int64, error) {
	ref := e.FollowRef()
	n, err := g.store.DeleteInvolving(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("purge relations of %s: %w", ref, err)
	}
	l := pkglog.Ctx(ctx)
	l.Debug().Str(pkglog.FieldEntity, ref.String()).Int64("deleted", n).Msg("relations purged")
	return n, nil
}

func refsOf(rels []Relation, side func(Relation) EntityRef) []EntityRef {
	refs := make([]EntityRef, 0, len(rels))
	for _, r := range rels {
		refs = append(refs, side(r))
	}
	return refs
}

func followerOf(r Relation) EntityRef   { return r.Follower }
func followableOf(r Relation) EntityRef { return r.Followable }
