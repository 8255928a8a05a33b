package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cexll/tasksync/internal/notify"
	"github.com/cexll/tasksync/internal/store"
)

// GroupPatch carries optional group changes.
type GroupPatch struct {
	Name        *string
	Description *string
}

// GroupDetail is a group with its members, lists and the caller's role.
type GroupDetail struct {
	store.Group
	Owner   store.User
	Role    store.Role
	Members []store.Member
	Lists   []store.ListSummary
}

// RoleRef picks a role by id or by name.
type RoleRef struct {
	ID   string
	Name string
}

// InviteInput names the user to add and the role to give them.
type InviteInput struct {
	UserID string
	Email  string
	Role   RoleRef
}

// CreateGroup creates a group owned by the caller.
func (s *Service) CreateGroup(ctx context.Context, userID, name, description string) (store.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Group{}, invalid("name", "group name is required")
	}
	group, _, err := s.store.CreateGroupWithOwner(ctx, store.Group{
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     userID,
	})
	if err != nil {
		return store.Group{}, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// GroupsForUser lists the groups the user belongs to.
func (s *Service) GroupsForUser(ctx context.Context, userID string) ([]store.GroupSummary, error) {
	groups, err := s.store.GroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []store.GroupSummary{}
	}
	return groups, nil
}

// GroupDetails returns a group for any member with view permission.
func (s *Service) GroupDetails(ctx context.Context, userID, groupID string) (GroupDetail, error) {
	group, _, role, err := s.requireGroup(ctx, userID, groupID, store.PermView, "view this group")
	if err != nil {
		return GroupDetail{}, err
	}
	owner, err := s.store.GetUser(ctx, group.OwnerID)
	if err != nil {
		return GroupDetail{}, wrapNotFound(err, "group owner")
	}
	members, err := s.store.MembersOfGroup(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	lists, err := s.store.ListsInGroup(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	if lists == nil {
		lists = []store.ListSummary{}
	}
	return GroupDetail{Group: group, Owner: owner, Role: role, Members: members, Lists: lists}, nil
}

func (s *Service) UpdateGroup(ctx context.Context, userID, groupID string, patch GroupPatch) (store.Group, error) {
	group, _, _, err := s.requireGroup(ctx, userID, groupID, store.PermEdit, "edit this group")
	if err != nil {
		return store.Group{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return store.Group{}, invalid("name", "group name cannot be empty")
		}
		group.Name = name
	}
	if patch.Description != nil {
		group.Description = strings.TrimSpace(*patch.Description)
	}
	updated, err := s.store.UpdateGroup(ctx, group)
	return updated, wrapNotFound(err, "group")
}

// DeleteGroup removes the group. Its lists stay with their owners.
func (s *Service) DeleteGroup(ctx context.Context, userID, groupID string) error {
	if _, _, _, err := s.requireGroup(ctx, userID, groupID, store.PermDeleteGroup, "delete this group"); err != nil {
		return err
	}
	return wrapNotFound(s.store.DeleteGroup(ctx, groupID), "group")
}

// resolveRole finds a role by id or case-insensitive name. An empty ref
// means Viewer.
func (s *Service) resolveRole(ctx context.Context, ref RoleRef) (store.Role, error) {
	if id := strings.TrimSpace(ref.ID); id != "" {
		role, err := s.store.GetRole(ctx, id)
		return role, wrapNotFound(err, "role")
	}
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		name = store.RoleViewer
	}
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return store.Role{}, err
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return store.Role{}, invalid("role", "unknown role %q", name)
}

// InviteMember adds a user to a group. Ownership cannot be granted this way.
func (s *Service) InviteMember(ctx context.Context, userID, groupID string, in InviteInput) (store.Member, error) {
	group, _, _, err := s.requireGroup(ctx, userID, groupID, store.PermInvite, "invite members to this group")
	if err != nil {
		return store.Member{}, err
	}
	role, err := s.resolveRole(ctx, in.Role)
	if err != nil {
		return store.Member{}, err
	}
	if role.Name == store.RoleOwner {
		return store.Member{}, invalid("role", "the Owner role cannot be granted by invitation")
	}
	invitee, err := s.resolveUser(ctx, in.UserID, in.Email)
	if err != nil {
		return store.Member{}, err
	}

	m, err := s.store.AddMembership(ctx, store.Membership{GroupID: groupID, UserID: invitee.ID, RoleID: role.ID})
	if errors.Is(err, store.ErrConflict) {
		return store.Member{}, fmt.Errorf("%w: user is already a member of this group", ErrConflict)
	}
	if err != nil {
		return store.Member{}, err
	}

	inviter, _ := s.store.GetUser(ctx, userID)
	s.notify(notify.NewMessage(notify.KindGroupInvite, invitee.Email,
		fmt.Sprintf("%s added you to %s", inviter.Name, group.Name),
		fmt.Sprintf("You joined the group %q as %s.", group.Name, role.Name),
		map[string]string{"group_id": group.ID, "group_name": group.Name, "role": role.Name, "invited_by": inviter.Name},
	))
	return store.Member{Membership: m, Name: invitee.Name, Email: invitee.Email}, nil
}

// ChangeMemberRole assigns a new role to a member. The group owner keeps
// the Owner role and nobody else can receive it.
func (s *Service) ChangeMemberRole(ctx context.Context, userID, groupID, targetID string, ref RoleRef) (store.Membership, error) {
	group, _, _, err := s.requireGroup(ctx, userID, groupID, store.PermChangeRole, "change roles in this group")
	if err != nil {
		return store.Membership{}, err
	}
	if strings.TrimSpace(targetID) == "" {
		return store.Membership{}, invalid("user_id", "user_id is required")
	}
	if ref.ID == "" && ref.Name == "" {
		return store.Membership{}, invalid("role", "role_id or role is required")
	}
	if targetID == group.OwnerID {
		return store.Membership{}, invalid("user_id", "the group owner's role cannot be changed")
	}
	role, err := s.resolveRole(ctx, ref)
	if err != nil {
		return store.Membership{}, err
	}
	if role.Name == store.RoleOwner {
		return store.Membership{}, invalid("role", "a group has exactly one owner")
	}
	if _, err := s.store.GetMembership(ctx, groupID, targetID); err != nil {
		return store.Membership{}, wrapNotFound(err, "group member")
	}
	return s.store.PutMembership(ctx, store.Membership{GroupID: groupID, UserID: targetID, RoleID: role.ID})
}

// RemoveMember drops a member. Members may leave on their own; removing
// others needs change_role. The owner can never be removed.
func (s *Service) RemoveMember(ctx context.Context, userID, groupID, targetID string) error {
	var group store.Group
	if userID == targetID {
		g, err := s.store.GetGroup(ctx, groupID)
		if err != nil {
			return wrapNotFound(err, "group")
		}
		group = g
	} else {
		g, _, _, err := s.requireGroup(ctx, userID, groupID, store.PermChangeRole, "remove members from this group")
		if err != nil {
			return err
		}
		group = g
	}
	if targetID == group.OwnerID {
		return invalid("user_id", "the group owner cannot be removed")
	}
	return wrapNotFound(s.store.DeleteMembership(ctx, groupID, targetID), "group member")
}

// MyRole returns the caller's membership and role in a group.
func (s *Service) MyRole(ctx context.Context, userID, groupID string) (store.Membership, store.Role, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return store.Membership{}, store.Role{}, wrapNotFound(err, "group")
	}
	m, role, err := s.membership(ctx, groupID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Membership{}, store.Role{}, notFound("group membership")
	}
	return m, role, err
}

// Roles lists every role with its permissions.
func (s *Service) Roles(ctx context.Context) ([]store.Role, error) {
	return s.store.ListRoles(ctx)
}
