package follow

import (
	"strings"
	"sync"
)

// Role is the set of capabilities a registered type opts into.
type Role uint8

const (
	RoleFollower Role = 1 << iota
	RoleFollowable

	RoleBoth = RoleFollower | RoleFollowable
)

// Has reports whether r includes every capability in other.
func (r Role) Has(other Role) bool {
	return r&other == other
}

// ParseRole maps "follower", "followable" or "both" to a Role.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "follower":
		return RoleFollower, true
	case "followable":
		return RoleFollowable, true
	case "both", "":
		return RoleBoth, true
	default:
		return 0, false
	}
}

// Registry records which entity types take part in follow relations. It is
// safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	roles  map[TypeTag]Role
	byName map[string]TypeTag
}

func NewRegistry() *Registry {
	return &Registry{
		roles:  make(map[TypeTag]Role),
		byName: make(map[string]TypeTag),
	}
}

// Register declares t with roles. Registering t again merges the roles.
func (r *Registry) Register(t TypeTag, roles Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[t] |= roles
	r.byName[nameKey(string(t))] = t
}

// Roles returns the roles of t and whether t is registered.
func (r *Registry) Roles(t TypeTag) (Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles, ok := r.roles[t]
	return roles, ok
}

// Lookup finds a registered type by name, ignoring case and underscores,
// so "blog_post", "BlogPost" and "blogpost" all resolve to "BlogPost".
func (r *Registry) Lookup(name string) (TypeTag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[nameKey(name)]
	return t, ok
}

func nameKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}
