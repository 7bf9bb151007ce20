package follow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRef is returned by ParseRef for malformed references.
var ErrInvalidRef = errors.New("invalid entity reference")

// TypeTag names a participant type, e.g. "User" or "Org".
type TypeTag string

// EntityRef identifies any participant of a follow relation.
type EntityRef struct {
	Type TypeTag
	ID   string
}

// Ref builds an EntityRef.
func Ref(t TypeTag, id string) EntityRef {
	return EntityRef{Type: t, ID: id}
}

// ParseRef parses the "Type:ID" form produced by EntityRef.String.
func ParseRef(s string) (EntityRef, error) {
	t, id, ok := strings.Cut(s, ":")
	if !ok || t == "" || id == "" {
		return EntityRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	return Ref(TypeTag(t), id), nil
}

func (r EntityRef) String() string {
	return string(r.Type) + ":" + r.ID
}

// IsZero reports whether r has neither type nor id.
func (r EntityRef) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

// FollowRef lets a bare EntityRef be used wherever an Entity is expected.
func (r EntityRef) FollowRef() EntityRef {
	return r
}

// Entity is implemented by any application type taking part in follow relations.
type Entity interface {
	FollowRef() EntityRef
}

// Relation is a directed follow edge with its state flags.
type Relation struct {
	ID          uint64
	Follower    EntityRef
	Followable  EntityRef
	Blocked     bool
	Unconfirmed bool
	HasRights   bool
	CreatedAt   time.Time
}

// Active reports whether the relation counts in the default follower views.
func (r Relation) Active() bool {
	return !r.Blocked && !r.Unconfirmed
}

// Flag names a mutable boolean on a relation.
type Flag string

const (
	FlagBlocked     Flag = "blocked"
	FlagUnconfirmed Flag = "unconfirmed"
	FlagHasRights   Flag = "has_rights"
)

// Draft carries the initial state of a relation passed to Store.Create.
type Draft struct {
	Follower    EntityRef
	Followable  EntityRef
	Blocked     bool
	Unconfirmed bool
}

// ListOptions bounds list queries. Zero values mean no limit and no offset.
type ListOptions struct {
	Limit  int
	Offset int
}
