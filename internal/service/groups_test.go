package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cexll/tasksync/internal/notify"
	"github.com/cexll/tasksync/internal/store"
)

func TestGroupLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "Owner", "owner@example.com")
	member := f.register(t, "Member", "member@example.com")
	outsider := f.register(t, "Outsider", "outsider@example.com")

	_, err := f.svc.CreateGroup(ctx, owner.ID, " ", "")
	require.ErrorIs(t, err, ErrInvalidInput)

	group, err := f.svc.CreateGroup(ctx, owner.ID, "Family", "home stuff")
	require.NoError(t, err)

	m, role, err := f.svc.MyRole(ctx, owner.ID, group.ID)
	require.NoError(t, err)
	require.Equal(t, store.RoleOwner, m.RoleName)
	require.True(t, role.Has(store.PermDeleteGroup))

	invited, err := f.svc.InviteMember(ctx, owner.ID, group.ID, InviteInput{Email: "member@example.com"})
	require.NoError(t, err)
	require.Equal(t, store.RoleViewer, invited.RoleName)
	require.Equal(t, "Member", invited.Name)
	msgs := f.queue.messages(notify.KindGroupInvite)
	require.Len(t, msgs, 1)
	require.Equal(t, "member@example.com", msgs[0].Recipient)

	_, err = f.svc.InviteMember(ctx, owner.ID, group.ID, InviteInput{UserID: member.ID})
	require.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.InviteMember(ctx, owner.ID, group.ID, InviteInput{UserID: outsider.ID, Role: RoleRef{Name: "Owner"}})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.InviteMember(ctx, owner.ID, group.ID, InviteInput{UserID: outsider.ID, Role: RoleRef{Name: "Admin"}})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.InviteMember(ctx, owner.ID, group.ID, InviteInput{UserID: "ghost"})
	require.ErrorIs(t, err, ErrNotFound)

	// viewers can look but not touch
	detail, err := f.svc.GroupDetails(ctx, member.ID, group.ID)
	require.NoError(t, err)
	require.Len(t, detail.Members, 2)
	require.Equal(t, owner.ID, detail.Owner.ID)
	require.Equal(t, store.RoleViewer, detail.Role.Name)
	_, err = f.svc.UpdateGroup(ctx, member.ID, group.ID, GroupPatch{Name: ptr("Mine")})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.InviteMember(ctx, member.ID, group.ID, InviteInput{UserID: outsider.ID})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.GroupDetails(ctx, outsider.ID, group.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.GroupDetails(ctx, owner.ID, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	contributor, err := f.svc.store.GetRoleByName(ctx, store.RoleContributor)
	require.NoError(t, err)
	changed, err := f.svc.ChangeMemberRole(ctx, owner.ID, group.ID, member.ID, RoleRef{ID: contributor.ID})
	require.NoError(t, err)
	require.Equal(t, store.RoleContributor, changed.RoleName)

	updated, err := f.svc.UpdateGroup(ctx, member.ID, group.ID, GroupPatch{Description: ptr("renamed by member")})
	require.NoError(t, err)
	require.Equal(t, "renamed by member", updated.Description)
	require.Equal(t, "Family", updated.Name)

	_, err = f.svc.ChangeMemberRole(ctx, owner.ID, group.ID, owner.ID, RoleRef{Name: "Viewer"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.ChangeMemberRole(ctx, owner.ID, group.ID, member.ID, RoleRef{Name: "Owner"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.ChangeMemberRole(ctx, owner.ID, group.ID, outsider.ID, RoleRef{Name: "Viewer"})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.ChangeMemberRole(ctx, member.ID, group.ID, owner.ID, RoleRef{Name: "Viewer"})
	require.ErrorIs(t, err, ErrForbidden)

	groups, err := f.svc.GroupsForUser(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, 2, groups[0].MembersCount)

	require.ErrorIs(t, f.svc.RemoveMember(ctx, owner.ID, group.ID, owner.ID), ErrInvalidInput)
	require.ErrorIs(t, f.svc.RemoveMember(ctx, member.ID, group.ID, owner.ID), ErrForbidden)
	require.ErrorIs(t, f.svc.DeleteGroup(ctx, member.ID, group.ID), ErrForbidden)

	// leaving is always allowed for non-owners
	require.NoError(t, f.svc.RemoveMember(ctx, member.ID, group.ID, member.ID))
	_, _, err = f.svc.MyRole(ctx, member.ID, group.ID)
	require.ErrorIs(t, err, ErrNotFound)

	list, err := f.svc.CreateList(ctx, owner.ID, ListInput{Name: "Chores", GroupID: &group.ID})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteGroup(ctx, owner.ID, group.ID))
	detail2, err := f.svc.GetList(ctx, owner.ID, list.ID)
	require.NoError(t, err)
	require.Nil(t, detail2.GroupID)
}

func TestRoles(t *testing.T) {
	f := newFixture(t)
	roles, err := f.svc.Roles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 3)
	require.Equal(t, store.RoleOwner, roles[0].Name)
	require.ElementsMatch(t, []string{store.PermView, store.PermEdit}, roles[1].Permissions)
}
