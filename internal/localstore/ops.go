package localstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/cexll/tasksync/internal/client"
)

// OpKind names an optimistic change.
type OpKind string

const (
	OpAddList             OpKind = "add_list"
	OpUpdateList          OpKind = "update_list"
	OpDeleteList          OpKind = "delete_list"
	OpAddTodo             OpKind = "add_todo"
	OpUpdateTodo          OpKind = "update_todo"
	OpDeleteTodo          OpKind = "delete_todo"
	OpToggleTodo          OpKind = "toggle_todo"
	OpShareList           OpKind = "share_list"
	OpUpdateShareRole     OpKind = "update_share_role"
	OpRemoveShare         OpKind = "remove_share"
	OpAddGroup            OpKind = "add_group"
	OpUpdateGroup         OpKind = "update_group"
	OpDeleteGroup         OpKind = "delete_group"
	OpAddListToGroup      OpKind = "add_list_to_group"
	OpRemoveListFromGroup OpKind = "remove_list_from_group"
)

// Operation is a change applied locally and not yet confirmed.
type Operation struct {
	ID        string    `yaml:"id"`
	Kind      OpKind    `yaml:"kind"`
	ListID    string    `yaml:"list_id,omitempty"`
	TodoID    string    `yaml:"todo_id,omitempty"`
	GroupID   string    `yaml:"group_id,omitempty"`
	UserID    string    `yaml:"user_id,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
	Before    snapshot  `yaml:"before"`
}

// snapshot holds the entities an operation touched, as they were before it.
// A nil entry means the entity did not exist.
type snapshot struct {
	Lists  []listSnap  `yaml:"lists,omitempty"`
	Groups []groupSnap `yaml:"groups,omitempty"`
}

type listSnap struct {
	ID   string           `yaml:"id"`
	List *client.TodoList `yaml:"list,omitempty"`
}

type groupSnap struct {
	ID    string        `yaml:"id"`
	Group *client.Group `yaml:"group,omitempty"`
}

// Pending returns the unconfirmed operations in the order they were made.
func (s *Store) Pending() []Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Operation(nil), s.state.Pending...)
}

// begin snapshots the named lists and groups and records a pending
// operation. Callers hold the write lock.
func (s *Store) begin(op Operation, listIDs, groupIDs []string) string {
	op.ID = uuid.NewString()
	op.CreatedAt = s.now()
	for _, id := range listIDs {
		op.Before.Lists = append(op.Before.Lists, listSnap{ID: id, List: cloneList(s.state.Lists[id])})
	}
	for _, id := range groupIDs {
		op.Before.Groups = append(op.Before.Groups, groupSnap{ID: id, Group: cloneGroup(s.state.Groups[id])})
	}
	s.state.Pending = append(s.state.Pending, op)
	return op.ID
}

// groupsHolding returns the ids of groups whose list set contains listID.
func (s *Store) groupsHolding(listID string) []string {
	var ids []string
	for id, g := range s.state.Groups {
		for _, l := range g.ListIDs {
			if l == listID {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

func (s *Store) takeOp(opID string) (Operation, bool) {
	for i, op := range s.state.Pending {
		if op.ID == opID {
			s.state.Pending = append(s.state.Pending[:i], s.state.Pending[i+1:]...)
			return op, true
		}
	}
	return Operation{}, false
}

// Rollback undoes a failed operation, restoring every entity it touched to
// its prior state.
func (s *Store) Rollback(opID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.takeOp(opID)
	if !ok {
		return ErrOpNotFound
	}
	for _, snap := range op.Before.Lists {
		if snap.List == nil {
			delete(s.state.Lists, snap.ID)
			continue
		}
		s.state.Lists[snap.ID] = cloneList(snap.List)
	}
	for _, snap := range op.Before.Groups {
		if snap.Group == nil {
			delete(s.state.Groups, snap.ID)
			continue
		}
		s.state.Groups[snap.ID] = cloneGroup(snap.Group)
	}
	return nil
}

// Reconcile confirms an operation. For creates, serverID replaces the
// optimistic local id everywhere it appears.
func (s *Store) Reconcile(opID, serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.takeOp(opID)
	if !ok {
		return ErrOpNotFound
	}
	if serverID == "" {
		return nil
	}
	switch op.Kind {
	case OpAddList:
		s.replaceListID(op.ListID, serverID)
	case OpAddTodo:
		s.replaceTodoID(op.ListID, op.TodoID, serverID)
	case OpAddGroup:
		s.replaceGroupID(op.GroupID, serverID)
	}
	return nil
}

// ReplaceListID renames a list, e.g. once the server assigned its id.
func (s *Store) ReplaceListID(localID, serverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceListID(localID, serverID)
}

// ReplaceTodoID renames a todo inside a list.
func (s *Store) ReplaceTodoID(listID, localID, serverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceTodoID(listID, localID, serverID)
}

func (s *Store) replaceListID(localID, serverID string) {
	if localID == serverID {
		return
	}
	if l, ok := s.state.Lists[localID]; ok {
		delete(s.state.Lists, localID)
		l.ID = serverID
		for i := range l.TodoItems {
			l.TodoItems[i].ListID = serverID
		}
		for i := range l.SharedWith {
			l.SharedWith[i].ListID = serverID
		}
		s.state.Lists[serverID] = l
	}
	for _, g := range s.state.Groups {
		for i, id := range g.ListIDs {
			if id == localID {
				g.ListIDs[i] = serverID
			}
		}
	}
	for i := range s.state.Pending {
		op := &s.state.Pending[i]
		if op.ListID == localID {
			op.ListID = serverID
		}
		for j := range op.Before.Lists {
			snap := &op.Before.Lists[j]
			if snap.ID != localID {
				continue
			}
			snap.ID = serverID
			if snap.List != nil {
				snap.List.ID = serverID
			}
		}
	}
}

func (s *Store) replaceTodoID(listID, localID, serverID string) {
	if l, ok := s.state.Lists[listID]; ok {
		for i := range l.TodoItems {
			if l.TodoItems[i].ID == localID {
				l.TodoItems[i].ID = serverID
			}
		}
	}
	for i := range s.state.Pending {
		if s.state.Pending[i].TodoID == localID {
			s.state.Pending[i].TodoID = serverID
		}
	}
}

func (s *Store) replaceGroupID(localID, serverID string) {
	if localID == serverID {
		return
	}
	if g, ok := s.state.Groups[localID]; ok {
		delete(s.state.Groups, localID)
		g.ID = serverID
		s.state.Groups[serverID] = g
	}
	for _, l := range s.state.Lists {
		if l.GroupID != nil && *l.GroupID == localID {
			id := serverID
			l.GroupID = &id
			if l.Group != nil {
				l.Group.ID = serverID
			}
		}
	}
	for i := range s.state.Pending {
		op := &s.state.Pending[i]
		if op.GroupID == localID {
			op.GroupID = serverID
		}
		for j := range op.Before.Groups {
			snap := &op.Before.Groups[j]
			if snap.ID != localID {
				continue
			}
			snap.ID = serverID
			if snap.Group != nil {
				snap.Group.ID = serverID
			}
		}
	}
}
