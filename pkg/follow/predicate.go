package follow

// Field identifies a filterable column of a relation.
type Field int

const (
	FieldBlocked Field = iota
	FieldUnconfirmed
	FieldHasRights
	FieldFollowerType
	FieldFollowerID
	FieldFollowableType
	FieldFollowableID
)

func (f Field) String() string {
	switch f {
	case FieldBlocked:
		return "blocked"
	case FieldUnconfirmed:
		return "unconfirmed"
	case FieldHasRights:
		return "has_rights"
	case FieldFollowerType:
		return "follower_type"
	case FieldFollowerID:
		return "follower_id"
	case FieldFollowableType:
		return "followable_type"
	case FieldFollowableID:
		return "followable_id"
	default:
		return "unknown"
	}
}

// Condition is a single equality filter. Value is a bool for flag fields and
// a string for reference fields.
type Condition struct {
	Field Field
	Value any
}

// Predicate is a conjunction of conditions. The zero Predicate matches every
// relation.
type Predicate struct {
	conds []Condition
}

// All combines predicates conjunctively.
func All(ps ...Predicate) Predicate {
	var out Predicate
	for _, p := range ps {
		out.conds = append(out.conds, p.conds...)
	}
	return out
}

// And returns p combined with others. p itself is not modified.
func (p Predicate) And(others ...Predicate) Predicate {
	return All(append([]Predicate{p}, others...)...)
}

// Conditions returns a copy of the conditions making up p.
func (p Predicate) Conditions() []Condition {
	out := make([]Condition, len(p.conds))
	copy(out, p.conds)
	return out
}

// Matches evaluates p against r in memory.
func (p Predicate) Matches(r Relation) bool {
	for _, c := range p.conds {
		if !c.matches(r) {
			return false
		}
	}
	return true
}

func (c Condition) matches(r Relation) bool {
	switch c.Field {
	case FieldBlocked:
		return r.Blocked == c.Value
	case FieldUnconfirmed:
		return r.Unconfirmed == c.Value
	case FieldHasRights:
		return r.HasRights == c.Value
	case FieldFollowerType:
		return string(r.Follower.Type) == c.Value
	case FieldFollowerID:
		return r.Follower.ID == c.Value
	case FieldFollowableType:
		return string(r.Followable.Type) == c.Value
	case FieldFollowableID:
		return r.Followable.ID == c.Value
	}
	return false
}

func where(f Field, v any) Predicate {
	return Predicate{conds: []Condition{{Field: f, Value: v}}}
}

func Unblocked() Predicate       { return where(FieldBlocked, false) }
func BlockedOnly() Predicate     { return where(FieldBlocked, true) }
func Confirmed() Predicate       { return where(FieldUnconfirmed, false) }
func UnconfirmedOnly() Predicate { return where(FieldUnconfirmed, true) }
func WithRights() Predicate      { return where(FieldHasRights, true) }

// Active is the unblocked and confirmed state every default view filters on.
func Active() Predicate {
	return All(Unblocked(), Confirmed())
}

func ForFollower(ref EntityRef) Predicate {
	return All(ForFollowerType(ref.Type), where(FieldFollowerID, ref.ID))
}

func ForFollowable(ref EntityRef) Predicate {
	return All(ForFollowableType(ref.Type), where(FieldFollowableID, ref.ID))
}

func ForFollowerType(t TypeTag) Predicate {
	return where(FieldFollowerType, string(t))
}

func ForFollowableType(t TypeTag) Predicate {
	return where(FieldFollowableType, string(t))
}

