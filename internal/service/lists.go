package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cexll/tasksync/internal/notify"
	"github.com/cexll/tasksync/internal/store"
)

// ListInput describes a new list.
type ListInput struct {
	Name        string
	Description string
	Color       string
	GroupID     *string
}

// ListPatch carries optional list changes. A GroupID pointing at an empty
// string detaches the list from its group.
type ListPatch struct {
	Name        *string
	Description *string
	Color       *string
	GroupID     *string
}

// ListDetail is a list with everything its screen shows.
type ListDetail struct {
	store.ListSummary
	Todos  []store.Todo
	Shares []store.ListShare
	Access Access
}

// ShareInput names who to share with and the role to grant.
type ShareInput struct {
	UserID string
	Email  string
	Role   store.ShareRole
}

// CreateList creates a list owned by the caller, optionally inside a group
// where the caller can edit.
func (s *Service) CreateList(ctx context.Context, userID string, in ListInput) (store.ListSummary, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return store.ListSummary{}, invalid("name", "list name is required")
	}
	groupID, err := s.checkGroupTarget(ctx, userID, in.GroupID)
	if err != nil {
		return store.ListSummary{}, err
	}

	list, err := s.store.CreateList(ctx, store.TodoList{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Color:       strings.TrimSpace(in.Color),
		GroupID:     groupID,
		OwnerID:     userID,
	})
	if err != nil {
		return store.ListSummary{}, wrapNotFound(err, "group")
	}
	return s.store.GetListSummary(ctx, list.ID)
}

// checkGroupTarget validates that a list may be placed in groupID.
func (s *Service) checkGroupTarget(ctx context.Context, userID string, groupID *string) (*string, error) {
	if groupID == nil || strings.TrimSpace(*groupID) == "" {
		return nil, nil
	}
	id := strings.TrimSpace(*groupID)
	if _, _, _, err := s.requireGroup(ctx, userID, id, store.PermEdit, "add lists to this group"); err != nil {
		return nil, err
	}
	return &id, nil
}

// ListsForUser returns every list the user can see, newest first.
func (s *Service) ListsForUser(ctx context.Context, userID string) ([]store.ListSummary, error) {
	lists, err := s.store.ListListsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []store.ListSummary{}
	}
	return lists, nil
}

// GetList returns a list with its todos and shares.
func (s *Service) GetList(ctx context.Context, userID, listID string) (ListDetail, error) {
	_, access, err := s.listAccess(ctx, userID, listID)
	if err != nil {
		return ListDetail{}, err
	}
	summary, err := s.store.GetListSummary(ctx, listID)
	if err != nil {
		return ListDetail{}, wrapNotFound(err, "todo list")
	}
	todos, err := s.store.TodosForList(ctx, listID)
	if err != nil {
		return ListDetail{}, err
	}
	shares, err := s.store.SharesForList(ctx, listID)
	if err != nil {
		return ListDetail{}, err
	}
	return ListDetail{ListSummary: summary, Todos: todos, Shares: shares, Access: access}, nil
}

// UpdateList applies a patch. Moving a list between groups is reserved for
// its owner.
func (s *Service) UpdateList(ctx context.Context, userID, listID string, patch ListPatch) (store.ListSummary, error) {
	list, access, err := s.requireList(ctx, userID, listID, store.PermEdit, "edit this todo list")
	if err != nil {
		return store.ListSummary{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return store.ListSummary{}, invalid("name", "list name cannot be empty")
		}
		list.Name = name
	}
	if patch.Description != nil {
		list.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Color != nil {
		list.Color = strings.TrimSpace(*patch.Color)
	}
	if patch.GroupID != nil {
		if !access.Owner {
			return store.ListSummary{}, forbidden("move this todo list")
		}
		groupID, err := s.checkGroupTarget(ctx, userID, patch.GroupID)
		if err != nil {
			return store.ListSummary{}, err
		}
		list.GroupID = groupID
	}

	if _, err := s.store.UpdateList(ctx, list); err != nil {
		return store.ListSummary{}, wrapNotFound(err, "todo list")
	}
	return s.store.GetListSummary(ctx, listID)
}

// DeleteList removes a list with its todos and shares.
func (s *Service) DeleteList(ctx context.Context, userID, listID string) error {
	if _, _, err := s.requireList(ctx, userID, listID, store.PermDeleteList, "delete this todo list"); err != nil {
		return err
	}
	return wrapNotFound(s.store.DeleteList(ctx, listID), "todo list")
}

// SharesForList lists who a list is shared with.
func (s *Service) SharesForList(ctx context.Context, userID, listID string) ([]store.ListShare, error) {
	if _, _, err := s.listAccess(ctx, userID, listID); err != nil {
		return nil, err
	}
	shares, err := s.store.SharesForList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if shares == nil {
		shares = []store.ListShare{}
	}
	return shares, nil
}

func parseShareRole(role store.ShareRole) (store.ShareRole, error) {
	switch store.ShareRole(strings.ToLower(strings.TrimSpace(string(role)))) {
	case "", store.ShareViewer:
		return store.ShareViewer, nil
	case store.ShareContributor:
		return store.ShareContributor, nil
	}
	return "", invalid("role", "role must be contributor or viewer")
}

// ShareList grants another user access to a list. Only the owner may share.
func (s *Service) ShareList(ctx context.Context, userID, listID string, in ShareInput) (store.ListShare, error) {
	list, access, err := s.listAccess(ctx, userID, listID)
	if err != nil {
		return store.ListShare{}, err
	}
	if !access.Owner {
		return store.ListShare{}, forbidden("share this todo list")
	}
	role, err := parseShareRole(in.Role)
	if err != nil {
		return store.ListShare{}, err
	}
	target, err := s.resolveUser(ctx, in.UserID, in.Email)
	if err != nil {
		return store.ListShare{}, err
	}
	if target.ID == list.OwnerID {
		return store.ListShare{}, invalid("user_id", "a list cannot be shared with its owner")
	}

	share, err := s.store.PutShare(ctx, store.ListShare{ListID: listID, UserID: target.ID, Role: role})
	if err != nil {
		return store.ListShare{}, err
	}

	owner, _ := s.store.GetUser(ctx, list.OwnerID)
	s.notify(notify.NewMessage(notify.KindListShared, target.Email,
		fmt.Sprintf("%s shared a list with you", owner.Name),
		fmt.Sprintf("You can now %s the list %q on TaskSync.", shareVerb(role), list.Name),
		map[string]string{"list_id": list.ID, "list_name": list.Name, "role": string(role), "shared_by": owner.Name},
	))
	return share, nil
}

func shareVerb(role store.ShareRole) string {
	if role == store.ShareContributor {
		return "edit"
	}
	return "view"
}

// UpdateShareRole changes the role of an existing share. Owner only.
func (s *Service) UpdateShareRole(ctx context.Context, userID, listID, targetID string, role store.ShareRole) (store.ListShare, error) {
	_, access, err := s.listAccess(ctx, userID, listID)
	if err != nil {
		return store.ListShare{}, err
	}
	if !access.Owner {
		return store.ListShare{}, forbidden("change sharing on this todo list")
	}
	if strings.TrimSpace(string(role)) == "" {
		return store.ListShare{}, invalid("role", "role is required")
	}
	parsed, err := parseShareRole(role)
	if err != nil {
		return store.ListShare{}, err
	}
	if _, err := s.store.GetShare(ctx, listID, targetID); err != nil {
		return store.ListShare{}, wrapNotFound(err, "share")
	}
	return s.store.PutShare(ctx, store.ListShare{ListID: listID, UserID: targetID, Role: parsed})
}

// Unshare removes a share. Owners can remove anyone; a user can always
// remove their own share.
func (s *Service) Unshare(ctx context.Context, userID, listID, targetID string) error {
	if userID != targetID {
		_, access, err := s.listAccess(ctx, userID, listID)
		if err != nil {
			return err
		}
		if !access.Owner {
			return forbidden("change sharing on this todo list")
		}
	} else if _, err := s.store.GetList(ctx, listID); err != nil {
		return wrapNotFound(err, "todo list")
	}

	err := s.store.DeleteShare(ctx, listID, targetID)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("share")
	}
	return err
}
