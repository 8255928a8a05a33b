package client

import "time"

// User is the public view of an account.
type User struct {
	ID             string    `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Email          string    `json:"email" yaml:"email"`
	ProfilePicture string    `json:"profile_picture,omitempty" yaml:"profile_picture,omitempty"`
	Role           string    `json:"role,omitempty" yaml:"role,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

// AuthResult is returned by Login and Register.
type AuthResult struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
	User   User      `json:"user"`
}

// ResetToken authorizes a single password reset.
type ResetToken struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

type Todo struct {
	ID          string     `json:"id" yaml:"id"`
	ListID      string     `json:"todo_list_id" yaml:"list_id"`
	Task        string     `json:"task" yaml:"task"`
	Description string     `json:"description" yaml:"description,omitempty"`
	IsCompleted bool       `json:"is_completed" yaml:"is_completed"`
	StartDate   *time.Time `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Priority    string     `json:"priority" yaml:"priority"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
}

// Share is a user a list has been shared with.
type Share struct {
	UserID   string    `json:"id" yaml:"user_id"`
	Name     string    `json:"name" yaml:"name"`
	Email    string    `json:"email" yaml:"email"`
	Role     string    `json:"role" yaml:"role"`
	SharedAt time.Time `json:"shared_at" yaml:"shared_at"`
	ListID   string    `json:"todo_list_id" yaml:"list_id"`
}

// GroupRef names the group a list belongs to.
type GroupRef struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type TodoList struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Description     string    `json:"description" yaml:"description,omitempty"`
	Color           string    `json:"color" yaml:"color,omitempty"`
	GroupID         *string   `json:"group_id" yaml:"group_id,omitempty"`
	Owner           User      `json:"owner" yaml:"owner"`
	Group           *GroupRef `json:"group,omitempty" yaml:"group,omitempty"`
	TodoItems       []Todo    `json:"todo_items,omitempty" yaml:"todo_items,omitempty"`
	TodoItemsCount  int       `json:"todo_items_count" yaml:"todo_items_count"`
	CompletedCount  int       `json:"completed_count" yaml:"completed_count"`
	SharedWith      []Share   `json:"shared_with,omitempty" yaml:"shared_with,omitempty"`
	SharedWithCount int       `json:"shared_with_count" yaml:"shared_with_count"`
	Role            string    `json:"role,omitempty" yaml:"role,omitempty"`
	Permissions     []string  `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

type Role struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Permissions []string  `json:"permissions" yaml:"permissions"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

type Group struct {
	ID             string     `json:"id" yaml:"id"`
	Name           string     `json:"name" yaml:"name"`
	Description    string     `json:"description" yaml:"description,omitempty"`
	OwnerID        string     `json:"owner_id" yaml:"owner_id"`
	Owner          *User      `json:"owner,omitempty" yaml:"owner,omitempty"`
	Role           string     `json:"role,omitempty" yaml:"role,omitempty"`
	Permissions    []string   `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	MembersCount   int        `json:"members_count" yaml:"members_count"`
	Members        []User     `json:"members,omitempty" yaml:"members,omitempty"`
	TodoListsCount int        `json:"todo_lists_count" yaml:"todo_lists_count"`
	TodoLists      []TodoList `json:"todo_lists,omitempty" yaml:"-"`
	// ListIDs is kept by local stores; the server returns TodoLists.
	ListIDs   []string  `json:"-" yaml:"list_ids,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Membership is a member's role assignment inside a group.
type Membership struct {
	GroupID   string    `json:"group_id"`
	UserID    string    `json:"user_id"`
	RoleID    string    `json:"role_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GroupRole is the caller's role in a group.
type GroupRole struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	Role    Role   `json:"role"`
}

// ListInput creates a list. GroupID is optional.
type ListInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
}

// ListPatch updates a list. A GroupID of "" detaches it from its group.
type ListPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	GroupID     *string `json:"group_id,omitempty"`
}

type TodoInput struct {
	Task        string     `json:"task"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

type TodoPatch struct {
	Task        *string    `json:"task,omitempty"`
	Description *string    `json:"description,omitempty"`
	IsCompleted *bool      `json:"is_completed,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	ClearDates  bool       `json:"clear_dates,omitempty"`
}

// ProfilePatch updates the caller's name or email.
type ProfilePatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// MemberInput names a user by id or email together with a role.
type MemberInput struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	RoleID string `json:"role_id,omitempty"`
}
