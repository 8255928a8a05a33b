package api

import (
	"time"

	"github.com/cexll/tasksync/internal/service"
	"github.com/cexll/tasksync/internal/store"
)

type userMinimal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type userResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toUser(u store.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

type sessionResponse struct {
	Token  string       `json:"token"`
	Expiry time.Time    `json:"expiry"`
	User   userResponse `json:"user"`
}

type todoResponse struct {
	ID          string         `json:"id"`
	ListID      string         `json:"todo_list_id"`
	Task        string         `json:"task"`
	Description string         `json:"description"`
	IsCompleted bool           `json:"is_completed"`
	StartDate   *time.Time     `json:"start_date,omitempty"`
	EndDate     *time.Time     `json:"end_date,omitempty"`
	Priority    store.Priority `json:"priority"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func toTodo(t store.Todo) todoResponse {
	return todoResponse{
		ID:          t.ID,
		ListID:      t.ListID,
		Task:        t.Task,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTodos(todos []store.Todo) []todoResponse {
	out := make([]todoResponse, 0, len(todos))
	for _, t := range todos {
		out = append(out, toTodo(t))
	}
	return out
}

type groupMinimal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type shareResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Role     store.ShareRole `json:"role"`
	SharedAt time.Time       `json:"shared_at"`
	TodoList string          `json:"todo_list_id"`
}

func toShare(s store.ListShare) shareResponse {
	return shareResponse{
		ID:       s.UserID,
		Name:     s.Name,
		Email:    s.Email,
		Role:     s.Role,
		SharedAt: s.CreatedAt,
		TodoList: s.ListID,
	}
}

func toShares(shares []store.ListShare) []shareResponse {
	out := make([]shareResponse, 0, len(shares))
	for _, s := range shares {
		out = append(out, toShare(s))
	}
	return out
}

type listResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Color           string          `json:"color"`
	GroupID         *string         `json:"group_id"`
	Owner           userMinimal     `json:"owner"`
	Group           *groupMinimal   `json:"group,omitempty"`
	TodoItems       []todoResponse  `json:"todo_items,omitempty"`
	TodoItemsCount  int             `json:"todo_items_count"`
	CompletedCount  int             `json:"completed_count"`
	SharedWith      []shareResponse `json:"shared_with,omitempty"`
	SharedWithCount int             `json:"shared_with_count"`
	Role            string          `json:"role,omitempty"`
	Permissions     []string        `json:"permissions,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toList(l store.ListSummary) listResponse {
	resp := listResponse{
		ID:              l.ID,
		Name:            l.Name,
		Description:     l.Description,
		Color:           l.Color,
		GroupID:         l.GroupID,
		Owner:           userMinimal{ID: l.OwnerID, Name: l.OwnerName, Email: l.OwnerEmail},
		TodoItemsCount:  l.TodoCount,
		CompletedCount:  l.CompletedCount,
		SharedWithCount: l.SharedCount,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if l.GroupID != nil {
		resp.Group = &groupMinimal{ID: *l.GroupID, Name: l.GroupName}
	}
	return resp
}

func toLists(lists []store.ListSummary) []listResponse {
	out := make([]listResponse, 0, len(lists))
	for _, l := range lists {
		out = append(out, toList(l))
	}
	return out
}

func toListDetail(d service.ListDetail) listResponse {
	resp := toList(d.ListSummary)
	resp.TodoItems = toTodos(d.Todos)
	resp.SharedWith = toShares(d.Shares)
	resp.Role = d.Access.Role
	resp.Permissions = d.Access.Permissions()
	return resp
}

type roleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRole(r store.Role) roleResponse {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return roleResponse{ID: r.ID, Name: r.Name, Permissions: perms, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type groupResponse struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	OwnerID        string         `json:"owner_id"`
	Owner          *userMinimal   `json:"owner,omitempty"`
	Role           string         `json:"role,omitempty"`
	Permissions    []string       `json:"permissions,omitempty"`
	MembersCount   int            `json:"members_count"`
	Members        []userMinimal  `json:"members,omitempty"`
	TodoListsCount int            `json:"todo_lists_count"`
	TodoLists      []listResponse `json:"todo_lists,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func toGroup(g store.Group) groupResponse {
	return groupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		OwnerID:     g.OwnerID,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func toGroupSummary(g store.GroupSummary) groupResponse {
	resp := toGroup(g.Group)
	resp.Owner = &userMinimal{ID: g.OwnerID, Name: g.OwnerName, Email: g.OwnerEmail}
	resp.Role = g.RoleName
	resp.MembersCount = g.MembersCount
	resp.TodoListsCount = g.ListsCount
	return resp
}

func toGroupDetail(d service.GroupDetail) groupResponse {
	resp := toGroup(d.Group)
	resp.Owner = &userMinimal{ID: d.Owner.ID, Name: d.Owner.Name, Email: d.Owner.Email}
	resp.Role = d.Role.Name
	resp.Permissions = d.Role.Permissions
	resp.Members = make([]userMinimal, 0, len(d.Members))
	for _, m := range d.Members {
		resp.Members = append(resp.Members, toMember(m))
	}
	resp.MembersCount = len(d.Members)
	resp.TodoLists = toLists(d.Lists)
	resp.TodoListsCount = len(d.Lists)
	return resp
}

func toMember(m store.Member) userMinimal {
	return userMinimal{ID: m.UserID, Name: m.Name, Email: m.Email, Role: m.RoleName}
}

type membershipResponse struct {
	GroupID   string    `json:"group_id"`
	UserID    string    `json:"user_id"`
	RoleID    string    `json:"role_id"`
	RoleName  string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toMembership(m store.Membership) membershipResponse {
	return membershipResponse{
		GroupID:   m.GroupID,
		UserID:    m.UserID,
		RoleID:    m.RoleID,
		RoleName:  m.RoleName,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
