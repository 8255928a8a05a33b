package store

import "time"

// Priority ranks a todo item.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityUrgent   Priority = "urgent"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityNormal, PriorityUrgent, PriorityCritical:
		return true
	}
	return false
}

// ShareRole is the role a user holds on a list shared with them.
type ShareRole string

const (
	ShareOwner       ShareRole = "owner"
	ShareContributor ShareRole = "contributor"
	ShareViewer      ShareRole = "viewer"
)

// Group permission names.
const (
	PermView        = "view"
	PermEdit        = "edit"
	PermInvite      = "invite"
	PermDeleteTodo  = "delete_todo"
	PermDeleteList  = "delete_list"
	PermChangeRole  = "change_role"
	PermDeleteGroup = "delete_group"
)

// Group role names.
const (
	RoleOwner       = "Owner"
	RoleContributor = "Contributor"
	RoleViewer      = "Viewer"
)

// AllPermissions lists every permission known to the system.
var AllPermissions = []string{
	PermView, PermEdit, PermInvite, PermDeleteTodo, PermDeleteList, PermChangeRole, PermDeleteGroup,
}

// DefaultRoles maps each seeded role to its permissions.
var DefaultRoles = map[string][]string{
	RoleOwner:       AllPermissions,
	RoleContributor: {PermView, PermEdit},
	RoleViewer:      {PermView},
}

// DefaultListName is the list every account starts with.
const DefaultListName = "DEFAULT"

type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	ProfilePicture string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Group struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GroupSummary is a group as seen by one member.
type GroupSummary struct {
	Group
	OwnerName    string
	OwnerEmail   string
	RoleName     string
	MembersCount int
	ListsCount   int
}

type Role struct {
	ID          string
	Name        string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Has reports whether the role grants perm.
func (r Role) Has(perm string) bool {
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Membership maps a user to a role inside a group.
type Membership struct {
	GroupID   string
	UserID    string
	RoleID    string
	RoleName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member is a membership joined with the member's identity.
type Member struct {
	Membership
	Name  string
	Email string
}

type TodoList struct {
	ID          string
	Name        string
	Description string
	Color       string
	GroupID     *string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListSummary is a list with the counts and names its card needs.
type ListSummary struct {
	TodoList
	OwnerName      string
	OwnerEmail     string
	GroupName      string
	TodoCount      int
	CompletedCount int
	SharedCount    int
}

// ListShare grants a user access to a list outside of any group.
type ListShare struct {
	ListID    string
	UserID    string
	Role      ShareRole
	Name      string
	Email     string
	CreatedAt time.Time
}

type Todo struct {
	ID          string
	ListID      string
	Task        string
	Description string
	IsCompleted bool
	StartDate   *time.Time
	EndDate     *time.Time
	Priority    Priority
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResetCode is a pending password reset for an email address.
type ResetCode struct {
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
}
