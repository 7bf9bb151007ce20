package follow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/follow-graph/pkg/follow"
)

func TestParseRef(t *testing.T) {
	ref, err := follow.ParseRef("BlogPost:42")
	require.NoError(t, err)
	assert.Equal(t, follow.Ref("BlogPost", "42"), ref)
	assert.Equal(t, "BlogPost:42", ref.String())

	ref, err = follow.ParseRef("User:a:b")
	require.NoError(t, err)
	assert.Equal(t, "a:b", ref.ID)

	for _, bad := range []string{"", "User", ":1", "User:"} {
		_, err := follow.ParseRef(bad)
		assert.ErrorIs(t, err, follow.ErrInvalidRef, bad)
	}
}

func TestRegistry(t *testing.T) {
	r := follow.NewRegistry()
	r.Register("BlogPost", follow.RoleFollowable)
	r.Register("User", follow.RoleFollower)
	r.Register("User", follow.RoleFollowable)

	for _, name := range []string{"BlogPost", "blog_post", "blogpost"} {
		tag, ok := r.Lookup(name)
		assert.True(t, ok, name)
		assert.Equal(t, follow.TypeTag("BlogPost"), tag)
	}
	_, ok := r.Lookup("Org")
	assert.False(t, ok)

	roles, ok := r.Roles("User")
	require.True(t, ok)
	assert.True(t, roles.Has(follow.RoleBoth))

	roles, _ = r.Roles("BlogPost")
	assert.False(t, roles.Has(follow.RoleFollower))

	role, ok := follow.ParseRole("Follower")
	assert.True(t, ok)
	assert.Equal(t, follow.RoleFollower, role)
	_, ok = follow.ParseRole("admin")
	assert.False(t, ok)
}
