package localstore

import (
	"github.com/cexll/tasksync/internal/client"
)

// AddGroup inserts a group, minting a local id when it has none.
func (s *Store) AddGroup(g client.Group) (client.Group, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = NewLocalID()
	}
	now := s.now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	if s.state.User != nil && g.OwnerID == "" {
		g.OwnerID = s.state.User.ID
		g.Role = "Owner"
		g.MembersCount = 1
	}
	opID := s.begin(Operation{Kind: OpAddGroup, GroupID: g.ID}, nil, []string{g.ID})
	stored := cloneGroup(&g)
	stored.TodoLists = nil
	stored.TodoListsCount = len(stored.ListIDs)
	s.state.Groups[g.ID] = stored
	return *cloneGroup(stored), opID
}

// UpdateGroup renames a group or changes its description. Lists showing
// the group's name follow the rename.
func (s *Store) UpdateGroup(id string, name, description *string) (client.Group, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.state.Groups[id]
	if !ok {
		return client.Group{}, "", ErrGroupNotFound
	}
	opID := s.begin(Operation{Kind: OpUpdateGroup, GroupID: id}, g.ListIDs, []string{id})
	if name != nil {
		g.Name = *name
		for _, lid := range g.ListIDs {
			if l, ok := s.state.Lists[lid]; ok && l.Group != nil {
				l.Group.Name = *name
			}
		}
	}
	if description != nil {
		g.Description = *description
	}
	g.UpdatedAt = s.now()
	return *cloneGroup(g), opID, nil
}

// DeleteGroup removes a group. Its lists stay and lose their group link.
func (s *Store) DeleteGroup(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.state.Groups[id]
	if !ok {
		return "", ErrGroupNotFound
	}
	opID := s.begin(Operation{Kind: OpDeleteGroup, GroupID: id}, g.ListIDs, []string{id})
	for _, lid := range g.ListIDs {
		if l, ok := s.state.Lists[lid]; ok {
			l.GroupID = nil
			l.Group = nil
		}
	}
	delete(s.state.Groups, id)
	return opID, nil
}

// AddListToGroup moves a list into a group.
func (s *Store) AddListToGroup(groupID, listID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Groups[groupID]; !ok {
		return "", ErrGroupNotFound
	}
	l, ok := s.state.Lists[listID]
	if !ok {
		return "", ErrListNotFound
	}
	groups := append(s.groupsHolding(listID), groupID)
	opID := s.begin(Operation{Kind: OpAddListToGroup, GroupID: groupID, ListID: listID}, []string{listID}, groups)
	s.detach(l)
	s.attach(l, groupID)
	return opID, nil
}

// RemoveListFromGroup detaches a list from a group.
func (s *Store) RemoveListFromGroup(groupID, listID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.state.Groups[groupID]
	if !ok {
		return "", ErrGroupNotFound
	}
	opID := s.begin(Operation{Kind: OpRemoveListFromGroup, GroupID: groupID, ListID: listID}, []string{listID}, []string{groupID})
	g.ListIDs = removeID(g.ListIDs, listID)
	g.TodoListsCount = len(g.ListIDs)
	if l, ok := s.state.Lists[listID]; ok && l.GroupID != nil && *l.GroupID == groupID {
		l.GroupID = nil
		l.Group = nil
	}
	return opID, nil
}
