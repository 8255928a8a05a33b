// Package localstore is the client-side cache of lists and groups. Changes
// are applied optimistically and recorded as pending operations until the
// server confirms them with Reconcile or rejects them with Rollback.
package localstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cexll/tasksync/internal/client"
)

// LocalPrefix marks ids minted on the client before the server assigns one.
const LocalPrefix = "local-"

// FileName is the default store file inside TASKSYNC_HOME.
const FileName = "store.yaml"

var (
	ErrListNotFound  = errors.New("list not found in local store")
	ErrTodoNotFound  = errors.New("todo not found in local store")
	ErrGroupNotFound = errors.New("group not found in local store")
	ErrShareNotFound = errors.New("share not found in local store")
	ErrOpNotFound    = errors.New("pending operation not found")
)

// IsLocalID reports whether id was minted by NewLocalID.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalPrefix)
}

// NewLocalID returns a temporary id for an optimistic create.
func NewLocalID() string {
	return LocalPrefix + uuid.NewString()
}

type state struct {
	User     *client.User                `yaml:"user,omitempty"`
	Lists    map[string]*client.TodoList `yaml:"lists"`
	Groups   map[string]*client.Group    `yaml:"groups"`
	Pending  []Operation                 `yaml:"pending,omitempty"`
	SyncedAt time.Time                   `yaml:"synced_at,omitempty"`
}

// Store holds lists and groups in memory and persists them as YAML.
// It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	path  string
	state state
	now   func() time.Time
}

// New returns an empty store that saves to path. An empty path disables
// persistence.
func New(path string) *Store {
	return &Store{
		path: path,
		state: state{
			Lists:  make(map[string]*client.TodoList),
			Groups: make(map[string]*client.Group),
		},
		now: time.Now,
	}
}

// Open restores a store from path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := New(path)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local store: %w", err)
	}
	var st state
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode local store: %w", err)
	}
	if st.Lists == nil {
		st.Lists = make(map[string]*client.TodoList)
	}
	if st.Groups == nil {
		st.Groups = make(map[string]*client.Group)
	}
	s.state = st
	return s, nil
}

// Save writes the store to its path.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	data, err := yaml.Marshal(&s.state)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}

// SetUser records the signed-in user.
func (s *Store) SetUser(u *client.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.state.User = nil
		return
	}
	cp := *u
	s.state.User = &cp
}

// User returns the signed-in user, if known.
func (s *Store) User() (client.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return client.User{}, false
	}
	return *s.state.User, true
}

// SyncedAt is when Replace last hydrated the store.
func (s *Store) SyncedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SyncedAt
}

// Replace hydrates the store from the server, dropping local state and
// pending operations.
func (s *Store) Replace(lists []client.TodoList, groups []client.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Lists = make(map[string]*client.TodoList, len(lists))
	for i := range lists {
		l := cloneList(&lists[i])
		s.state.Lists[l.ID] = l
	}
	s.state.Groups = make(map[string]*client.Group, len(groups))
	for i := range groups {
		g := cloneGroup(&groups[i])
		if len(g.ListIDs) == 0 {
			for _, l := range g.TodoLists {
				g.ListIDs = append(g.ListIDs, l.ID)
			}
		}
		g.TodoLists = nil
		s.state.Groups[g.ID] = g
	}
	for _, l := range s.state.Lists {
		if l.GroupID == nil {
			continue
		}
		if g, ok := s.state.Groups[*l.GroupID]; ok {
			g.ListIDs = appendUnique(g.ListIDs, l.ID)
		}
	}
	s.state.Pending = nil
	s.state.SyncedAt = s.now()
}

// GetList returns a copy of one list.
func (s *Store) GetList(id string) (client.TodoList, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.Lists[id]
	if !ok {
		return client.TodoList{}, false
	}
	return *cloneList(l), true
}

// Lists returns every list, newest first.
func (s *Store) Lists() []client.TodoList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]client.TodoList, 0, len(s.state.Lists))
	for _, l := range s.state.Lists {
		out = append(out, *cloneList(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// GetGroup returns a copy of one group.
func (s *Store) GetGroup(id string) (client.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.state.Groups[id]
	if !ok {
		return client.Group{}, false
	}
	return *cloneGroup(g), true
}

// Groups returns every group sorted by name.
func (s *Store) Groups() []client.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]client.Group, 0, len(s.state.Groups))
	for _, g := range s.state.Groups {
		out = append(out, *cloneGroup(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func cloneList(l *client.TodoList) *client.TodoList {
	if l == nil {
		return nil
	}
	cp := *l
	if l.GroupID != nil {
		id := *l.GroupID
		cp.GroupID = &id
	}
	if l.Group != nil {
		g := *l.Group
		cp.Group = &g
	}
	cp.TodoItems = append([]client.Todo(nil), l.TodoItems...)
	for i := range cp.TodoItems {
		cp.TodoItems[i].StartDate = cloneTime(cp.TodoItems[i].StartDate)
		cp.TodoItems[i].EndDate = cloneTime(cp.TodoItems[i].EndDate)
	}
	cp.SharedWith = append([]client.Share(nil), l.SharedWith...)
	cp.Permissions = append([]string(nil), l.Permissions...)
	return &cp
}

func cloneGroup(g *client.Group) *client.Group {
	if g == nil {
		return nil
	}
	cp := *g
	if g.Owner != nil {
		o := *g.Owner
		cp.Owner = &o
	}
	cp.Members = append([]client.User(nil), g.Members...)
	cp.Permissions = append([]string(nil), g.Permissions...)
	cp.ListIDs = append([]string(nil), g.ListIDs...)
	cp.TodoLists = append([]client.TodoList(nil), g.TodoLists...)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
