package localstore

import (
	"strings"

	"github.com/cexll/tasksync/internal/client"
)

// AddList inserts a list. Lists without an id get a local one. If the
// list names a known group, the group gains it too.
func (s *Store) AddList(l client.TodoList) (client.TodoList, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = NewLocalID()
	}
	now := s.now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	if s.state.User != nil && l.Owner.ID == "" {
		l.Owner = client.User{ID: s.state.User.ID, Name: s.state.User.Name, Email: s.state.User.Email}
		l.Role = "owner"
	}

	var groups []string
	if l.GroupID != nil {
		groups = append(groups, *l.GroupID)
	}
	opID := s.begin(Operation{Kind: OpAddList, ListID: l.ID}, []string{l.ID}, groups)

	stored := cloneList(&l)
	s.state.Lists[l.ID] = stored
	if l.GroupID != nil {
		if g, ok := s.state.Groups[*l.GroupID]; ok {
			g.ListIDs = appendUnique(g.ListIDs, l.ID)
			g.TodoListsCount = len(g.ListIDs)
			stored.Group = &client.GroupRef{ID: g.ID, Name: g.Name}
		}
	}
	return *cloneList(stored), opID
}

// UpdateList applies a patch. An empty GroupID detaches the list.
func (s *Store) UpdateList(id string, patch client.ListPatch) (client.TodoList, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.Lists[id]
	if !ok {
		return client.TodoList{}, "", ErrListNotFound
	}
	groups := s.groupsHolding(id)
	if patch.GroupID != nil && *patch.GroupID != "" {
		groups = append(groups, *patch.GroupID)
	}
	opID := s.begin(Operation{Kind: OpUpdateList, ListID: id}, []string{id}, groups)

	if patch.Name != nil {
		l.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		l.Description = *patch.Description
	}
	if patch.Color != nil {
		l.Color = *patch.Color
	}
	if patch.GroupID != nil {
		s.detach(l)
		if *patch.GroupID != "" {
			s.attach(l, *patch.GroupID)
		}
	}
	l.UpdatedAt = s.now()
	return *cloneList(l), opID, nil
}

// DeleteList removes a list and drops it from every group.
func (s *Store) DeleteList(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Lists[id]; !ok {
		return "", ErrListNotFound
	}
	groups := s.groupsHolding(id)
	opID := s.begin(Operation{Kind: OpDeleteList, ListID: id}, []string{id}, groups)
	delete(s.state.Lists, id)
	for _, gid := range groups {
		g := s.state.Groups[gid]
		g.ListIDs = removeID(g.ListIDs, id)
		g.TodoListsCount = len(g.ListIDs)
	}
	return opID, nil
}

// attach links l to group groupID. Callers hold the write lock.
func (s *Store) attach(l *client.TodoList, groupID string) {
	id := groupID
	l.GroupID = &id
	l.Group = nil
	if g, ok := s.state.Groups[groupID]; ok {
		g.ListIDs = appendUnique(g.ListIDs, l.ID)
		g.TodoListsCount = len(g.ListIDs)
		l.Group = &client.GroupRef{ID: g.ID, Name: g.Name}
	}
}

// detach unlinks l from whatever group holds it.
func (s *Store) detach(l *client.TodoList) {
	for _, gid := range s.groupsHolding(l.ID) {
		g := s.state.Groups[gid]
		g.ListIDs = removeID(g.ListIDs, l.ID)
		g.TodoListsCount = len(g.ListIDs)
	}
	l.GroupID = nil
	l.Group = nil
}

// ShareList adds or replaces a share on a list.
func (s *Store) ShareList(listID string, share client.Share) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.Lists[listID]
	if !ok {
		return "", ErrListNotFound
	}
	opID := s.begin(Operation{Kind: OpShareList, ListID: listID, UserID: share.UserID}, []string{listID}, nil)
	share.ListID = listID
	if share.SharedAt.IsZero() {
		share.SharedAt = s.now()
	}
	for i := range l.SharedWith {
		if l.SharedWith[i].UserID == share.UserID {
			l.SharedWith[i] = share
			return opID, nil
		}
	}
	l.SharedWith = append(l.SharedWith, share)
	l.SharedWithCount++
	return opID, nil
}

// UpdateShareRole changes the role of an existing share.
func (s *Store) UpdateShareRole(listID, userID, role string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.Lists[listID]
	if !ok {
		return "", ErrListNotFound
	}
	idx := -1
	for i := range l.SharedWith {
		if l.SharedWith[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", ErrShareNotFound
	}
	opID := s.begin(Operation{Kind: OpUpdateShareRole, ListID: listID, UserID: userID}, []string{listID}, nil)
	l.SharedWith[idx].Role = role
	return opID, nil
}

// RemoveShare revokes a share.
func (s *Store) RemoveShare(listID, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.Lists[listID]
	if !ok {
		return "", ErrListNotFound
	}
	idx := -1
	for i := range l.SharedWith {
		if l.SharedWith[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", ErrShareNotFound
	}
	opID := s.begin(Operation{Kind: OpRemoveShare, ListID: listID, UserID: userID}, []string{listID}, nil)
	l.SharedWith = append(l.SharedWith[:idx], l.SharedWith[idx+1:]...)
	if l.SharedWithCount > 0 {
		l.SharedWithCount--
	}
	return opID, nil
}
