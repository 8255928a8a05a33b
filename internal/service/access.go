package service

import (
	"context"
	"errors"

	"github.com/cexll/tasksync/internal/store"
)

// Access is what one user may do with one list.
type Access struct {
	Owner bool
	// Role is the strongest label for the caller: owner, contributor,
	// viewer, or the group role name.
	Role  string
	perms map[string]bool
}

// Can reports whether the access grants perm. Owners can do everything.
func (a Access) Can(perm string) bool {
	return a.Owner || a.perms[perm]
}

// Permissions lists granted permissions in a stable order.
func (a Access) Permissions() []string {
	var out []string
	for _, p := range store.AllPermissions {
		if a.Can(p) {
			out = append(out, p)
		}
	}
	return out
}

var sharePermissions = map[store.ShareRole][]string{
	store.ShareViewer:      {store.PermView},
	store.ShareContributor: {store.PermView, store.PermEdit, store.PermDeleteTodo},
}

// listAccess resolves the caller's access to a list. Ownership wins, then
// direct shares and group membership are merged.
func (s *Service) listAccess(ctx context.Context, userID, listID string) (store.TodoList, Access, error) {
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return store.TodoList{}, Access{}, wrapNotFound(err, "todo list")
	}
	if list.OwnerID == userID {
		return list, Access{Owner: true, Role: string(store.ShareOwner)}, nil
	}

	access := Access{perms: map[string]bool{}}
	share, err := s.store.GetShare(ctx, listID, userID)
	switch {
	case err == nil:
		access.Role = string(share.Role)
		for _, p := range sharePermissions[share.Role] {
			access.perms[p] = true
		}
	case !errors.Is(err, store.ErrNotFound):
		return store.TodoList{}, Access{}, err
	}

	if list.GroupID != nil {
		membership, role, err := s.membership(ctx, *list.GroupID, userID)
		switch {
		case err == nil:
			before := len(access.perms)
			for _, p := range role.Permissions {
				access.perms[p] = true
			}
			if access.Role == "" || len(access.perms) > before {
				access.Role = membership.RoleName
			}
		case !errors.Is(err, store.ErrNotFound):
			return store.TodoList{}, Access{}, err
		}
	}

	if !access.perms[store.PermView] {
		return store.TodoList{}, Access{}, forbidden("view this todo list")
	}
	return list, access, nil
}

// requireList resolves access and checks perm in one step.
func (s *Service) requireList(ctx context.Context, userID, listID, perm, action string) (store.TodoList, Access, error) {
	list, access, err := s.listAccess(ctx, userID, listID)
	if err != nil {
		return store.TodoList{}, Access{}, err
	}
	if !access.Can(perm) {
		return store.TodoList{}, Access{}, forbidden(action)
	}
	return list, access, nil
}

func (s *Service) membership(ctx context.Context, groupID, userID string) (store.Membership, store.Role, error) {
	m, err := s.store.GetMembership(ctx, groupID, userID)
	if err != nil {
		return store.Membership{}, store.Role{}, err
	}
	role, err := s.store.GetRole(ctx, m.RoleID)
	if err != nil {
		return store.Membership{}, store.Role{}, err
	}
	return m, role, nil
}

// requireGroup loads a group and checks that the caller's role grants perm.
// Non-members get ErrForbidden for an existing group.
func (s *Service) requireGroup(ctx context.Context, userID, groupID, perm, action string) (store.Group, store.Membership, store.Role, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return store.Group{}, store.Membership{}, store.Role{}, wrapNotFound(err, "group")
	}
	m, role, err := s.membership(ctx, groupID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Group{}, store.Membership{}, store.Role{}, forbidden(action)
	}
	if err != nil {
		return store.Group{}, store.Membership{}, store.Role{}, err
	}
	if !role.Has(perm) {
		return store.Group{}, store.Membership{}, store.Role{}, forbidden(action)
	}
	return group, m, role, nil
}
