package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/model"
)

type groupFixture struct {
	ctx     context.Context
	groups  *GroupService
	recipes *RecipeService
	authz   *Authorizer
	agg     *Aggregator
	admin   *model.User
	member  *model.User
	group   *model.GroupView
}

func newGroupFixture(t *testing.T) *groupFixture {
	t.Helper()
	db := newTestStore(t)
	f := &groupFixture{
		ctx:     context.Background(),
		groups:  NewGroupService(db, discardLogger()),
		recipes: NewRecipeService(db, nil, discardLogger()),
		authz:   NewAuthorizer(db),
		agg:     NewAggregator(db),
		admin:   createUser(t, db, "alice"),
		member:  createUser(t, db, "bob"),
	}
	g, err := f.groups.CreateGroup(f.ctx, f.admin.ID, CreateGroupInput{Name: "  Sunday Lunch  ", Description: "family"})
	require.NoError(t, err)
	f.group = g
	return f
}

func (f *groupFixture) memberCount(t *testing.T) int {
	t.Helper()
	n, err := f.agg.MemberCount(f.ctx, f.group.ID)
	require.NoError(t, err)
	return n
}

func TestCreateGroup_CreatorIsAdminMember(t *testing.T) {
	f := newGroupFixture(t)

	assert.Equal(t, "Sunday Lunch", f.group.Name)
	assert.Equal(t, 1, f.group.MemberCount)
	assert.True(t, f.group.CurrentUserIsMember)
	assert.True(t, f.group.CurrentUserIsAdmin)

	isAdmin, err := f.authz.IsAdmin(f.ctx, f.admin.ID, f.group.ID)
	require.NoError(t, err)
	isMember, err := f.authz.IsMember(f.ctx, f.admin.ID, f.group.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
	assert.True(t, isMember)
}

func TestCreateGroup_Validation(t *testing.T) {
	f := newGroupFixture(t)

	_, err := f.groups.CreateGroup(f.ctx, f.admin.ID, CreateGroupInput{Name: "   "})
	assert.True(t, apperror.Is(err, apperror.ErrValidation))
}

func TestCreateGroup_RollsBackWithoutAdmin(t *testing.T) {
	f := newGroupFixture(t)

	// The admin membership insert fails on the unknown user, so the group
	// insert must not survive either.
	_, err := f.groups.CreateGroup(f.ctx, "no-such-user", CreateGroupInput{Name: "Orphan"})
	require.Error(t, err)

	all, err := f.groups.ListGroups(f.ctx, model.Anonymous())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, f.group.ID, all[0].ID)
}

func TestJoinGroup_TwiceIsConflict(t *testing.T) {
	f := newGroupFixture(t)

	_, err := f.groups.JoinGroup(f.ctx, f.member.ID, f.group.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.memberCount(t))

	_, err = f.groups.JoinGroup(f.ctx, f.member.ID, f.group.ID)
	assert.True(t, apperror.Is(err, apperror.ErrConflict))
	assert.Equal(t, 2, f.memberCount(t), "failed join must not change the count")
}

func TestJoinGroup_UnknownGroup(t *testing.T) {
	f := newGroupFixture(t)

	_, err := f.groups.JoinGroup(f.ctx, f.member.ID, "missing")
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))
}

func TestJoinGroup_StaleUserIsNotBlamedOnGroup(t *testing.T) {
	f := newGroupFixture(t)

	_, err := f.groups.JoinGroup(f.ctx, "ghost-user", f.group.ID)
	require.True(t, apperror.Is(err, apperror.ErrNotFound))
	assert.Equal(t, "user not found with id ghost-user", err.Error())
}

func TestMemberCount_TracksJoinAndLeave(t *testing.T) {
	f := newGroupFixture(t)
	assert.Equal(t, 1, f.memberCount(t))

	_, err := f.groups.JoinGroup(f.ctx, f.member.ID, f.group.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.memberCount(t))

	members, err := f.groups.ListMembers(f.ctx, f.admin.ID, f.group.ID)
	require.NoError(t, err)
	assert.Len(t, members, f.memberCount(t))

	require.NoError(t, f.groups.LeaveGroup(f.ctx, f.member.ID, f.group.ID))
	assert.Equal(t, 1, f.memberCount(t))
}

func TestLeaveGroup_NotAMember(t *testing.T) {
	f := newGroupFixture(t)

	err := f.groups.LeaveGroup(f.ctx, f.member.ID, f.group.ID)
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))

	err = f.groups.LeaveGroup(f.ctx, f.member.ID, "missing")
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))
}

func TestRemoveMember_SelfIsForbiddenButLeaveWorks(t *testing.T) {
	f := newGroupFixture(t)

	err := f.groups.RemoveMember(f.ctx, f.admin.ID, f.group.ID, f.admin.ID)
	assert.True(t, apperror.Is(err, apperror.ErrForbidden))
	assert.Equal(t, 1, f.memberCount(t))

	require.NoError(t, f.groups.LeaveGroup(f.ctx, f.admin.ID, f.group.ID))
	assert.Equal(t, 0, f.memberCount(t))
}

func TestRemoveMember(t *testing.T) {
	f := newGroupFixture(t)
	_, err := f.groups.JoinGroup(f.ctx, f.member.ID, f.group.ID)
	require.NoError(t, err)

	t.Run("non-admin cannot remove", func(t *testing.T) {
		err := f.groups.RemoveMember(f.ctx, f.member.ID, f.group.ID, f.admin.ID)
		assert.True(t, apperror.Is(err, apperror.ErrForbidden))
	})

	t.Run("admin removes member", func(t *testing.T) {
		require.NoError(t, f.groups.RemoveMember(f.ctx, f.admin.ID, f.group.ID, f.member.ID))
		ok, err := f.authz.IsMember(f.ctx, f.member.ID, f.group.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("removing a non-member is NotFound", func(t *testing.T) {
		err := f.groups.RemoveMember(f.ctx, f.admin.ID, f.group.ID, f.member.ID)
		assert.True(t, apperror.Is(err, apperror.ErrNotFound))
	})
}

func TestSetAdmin(t *testing.T) {
	f := newGroupFixture(t)
	_, err := f.groups.JoinGroup(f.ctx, f.member.ID, f.group.ID)
	require.NoError(t, err)

	_, err = f.groups.SetAdmin(f.ctx, f.member.ID, f.group.ID, f.member.ID, true)
	assert.True(t, apperror.Is(err, apperror.ErrForbidden), "members cannot promote themselves")

	m, err := f.groups.SetAdmin(f.ctx, f.admin.ID, f.group.ID, f.member.ID, true)
	require.NoError(t, err)
	assert.True(t, m.IsAdmin)

	// An admin may drop their own admin flag.
	m, err = f.groups.SetAdmin(f.ctx, f.admin.ID, f.group.ID, f.admin.ID, false)
	require.NoError(t, err)
	assert.False(t, m.IsAdmin)

	isMember, err := f.authz.IsMember(f.ctx, f.admin.ID, f.group.ID)
	require.NoError(t, err)
	assert.True(t, isMember, "demotion keeps membership")

	outsider := "nobody"
	_, err = f.groups.SetAdmin(f.ctx, f.member.ID, f.group.ID, outsider, true)
	assert.True(t, apperror.Is(err, apperror.ErrNotFound), "target must be a member")
}

func TestUpdateGroup(t *testing.T) {
	f := newGroupFixture(t)
	_, err := f.groups.JoinGroup(f.ctx, f.member.ID, f.group.ID)
	require.NoError(t, err)

	_, err = f.groups.UpdateGroup(f.ctx, f.member.ID, f.group.ID, UpdateGroupInput{Name: ptr("Hijacked")})
	assert.True(t, apperror.Is(err, apperror.ErrForbidden))

	_, err = f.groups.UpdateGroup(f.ctx, f.admin.ID, f.group.ID, UpdateGroupInput{Name: ptr("  ")})
	assert.True(t, apperror.Is(err, apperror.ErrValidation))

	g, err := f.groups.UpdateGroup(f.ctx, f.admin.ID, f.group.ID, UpdateGroupInput{Description: ptr("weekly")})
	require.NoError(t, err)
	assert.Equal(t, "Sunday Lunch", g.Name, "absent fields are untouched")
	assert.Equal(t, "weekly", g.Description)
}

func TestDeleteGroup_CascadesMembershipsAndDetachesRecipes(t *testing.T) {
	f := newGroupFixture(t)
	_, err := f.groups.JoinGroup(f.ctx, f.member.ID, f.group.ID)
	require.NoError(t, err)

	in := recipeInput("Roast")
	in.GroupID = &f.group.ID
	r, err := f.recipes.CreateRecipe(f.ctx, f.member.ID, in)
	require.NoError(t, err)

	err = f.groups.DeleteGroup(f.ctx, f.member.ID, f.group.ID)
	assert.True(t, apperror.Is(err, apperror.ErrForbidden))

	require.NoError(t, f.groups.DeleteGroup(f.ctx, f.admin.ID, f.group.ID))

	assert.Equal(t, 0, f.memberCount(t))
	mine, err := f.groups.ListMyGroups(f.ctx, f.member.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	got, err := f.recipes.GetRecipe(f.ctx, model.Anonymous(), r.ID)
	require.NoError(t, err, "recipe must survive group deletion")
	assert.Nil(t, got.GroupID)
}

func TestListGroups_ViewerFlags(t *testing.T) {
	f := newGroupFixture(t)
	_, err := f.groups.CreateGroup(f.ctx, f.member.ID, CreateGroupInput{Name: "Bakers"})
	require.NoError(t, err)

	anon, err := f.groups.ListGroups(f.ctx, model.Anonymous())
	require.NoError(t, err)
	require.Len(t, anon, 2)
	for _, g := range anon {
		assert.False(t, g.CurrentUserIsMember)
		assert.False(t, g.CurrentUserIsAdmin)
		assert.Equal(t, 1, g.MemberCount)
	}

	asAlice, err := f.groups.ListGroups(f.ctx, model.AuthenticatedViewer(f.admin.ID))
	require.NoError(t, err)
	flags := map[string]bool{}
	for _, g := range asAlice {
		flags[g.Name] = g.CurrentUserIsAdmin
	}
	assert.Equal(t, map[string]bool{"Sunday Lunch": true, "Bakers": false}, flags)
}

func TestListGroupRecipes_RequiresCurrentMembership(t *testing.T) {
	f := newGroupFixture(t)
	_, err := f.groups.JoinGroup(f.ctx, f.member.ID, f.group.ID)
	require.NoError(t, err)

	in := recipeInput("Shared stew")
	in.GroupID = &f.group.ID
	_, err = f.recipes.CreateRecipe(f.ctx, f.admin.ID, in)
	require.NoError(t, err)
	_, err = f.recipes.CreateRecipe(f.ctx, f.admin.ID, recipeInput("Private toast"))
	require.NoError(t, err)

	list, err := f.groups.ListGroupRecipes(f.ctx, f.member.ID, f.group.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Shared stew", list[0].Title)

	require.NoError(t, f.groups.LeaveGroup(f.ctx, f.member.ID, f.group.ID))
	_, err = f.groups.ListGroupRecipes(f.ctx, f.member.ID, f.group.ID)
	assert.True(t, apperror.Is(err, apperror.ErrForbidden), "membership is re-checked per call")
}
