package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cexll/tasksync/internal/notify"
	"github.com/cexll/tasksync/internal/store"
)

func TestListAccessMatrix(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "Owner", "owner@example.com")
	viewer := f.register(t, "Viewer", "viewer@example.com")
	contributor := f.register(t, "Contrib", "contrib@example.com")
	groupViewer := f.register(t, "GroupViewer", "gviewer@example.com")
	groupEditor := f.register(t, "GroupEditor", "geditor@example.com")
	stranger := f.register(t, "Stranger", "stranger@example.com")

	group, err := f.svc.CreateGroup(ctx, owner.ID, "Team", "")
	require.NoError(t, err)
	_, err = f.svc.InviteMember(ctx, owner.ID, group.ID, InviteInput{UserID: groupViewer.ID})
	require.NoError(t, err)
	_, err = f.svc.InviteMember(ctx, owner.ID, group.ID, InviteInput{Email: "geditor@example.com", Role: RoleRef{Name: "contributor"}})
	require.NoError(t, err)

	list, err := f.svc.CreateList(ctx, owner.ID, ListInput{Name: "Shared", GroupID: &group.ID})
	require.NoError(t, err)
	_, err = f.svc.ShareList(ctx, owner.ID, list.ID, ShareInput{UserID: viewer.ID, Role: store.ShareViewer})
	require.NoError(t, err)
	_, err = f.svc.ShareList(ctx, owner.ID, list.ID, ShareInput{Email: "contrib@example.com", Role: store.ShareContributor})
	require.NoError(t, err)

	tests := []struct {
		name       string
		userID     string
		wantErr    error
		canEdit    bool
		canDelTodo bool
		canDelList bool
	}{
		{"owner", owner.ID, nil, true, true, true},
		{"share viewer", viewer.ID, nil, false, false, false},
		{"share contributor", contributor.ID, nil, true, true, false},
		{"group viewer", groupViewer.ID, nil, false, false, false},
		{"group contributor", groupEditor.ID, nil, true, false, false},
		{"stranger", stranger.ID, ErrForbidden, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, access, err := f.svc.listAccess(ctx, tt.userID, list.ID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.True(t, access.Can(store.PermView))
			require.Equal(t, tt.canEdit, access.Can(store.PermEdit))
			require.Equal(t, tt.canDelTodo, access.Can(store.PermDeleteTodo))
			require.Equal(t, tt.canDelList, access.Can(store.PermDeleteList))
		})
	}

	_, _, err = f.svc.listAccess(ctx, owner.ID, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	lists, err := f.svc.ListsForUser(ctx, groupViewer.ID)
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, l := range lists {
		ids[l.ID] = true
	}
	require.True(t, ids[list.ID], "group member should see the group's list")
}

func TestListCRUD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "Owner", "owner@example.com")
	other := f.register(t, "Other", "other@example.com")

	_, err := f.svc.CreateList(ctx, owner.ID, ListInput{Name: "  "})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.CreateList(ctx, owner.ID, ListInput{Name: "x", GroupID: ptr("missing")})
	require.ErrorIs(t, err, ErrNotFound)

	othersGroup, err := f.svc.CreateGroup(ctx, other.ID, "Theirs", "")
	require.NoError(t, err)
	_, err = f.svc.CreateList(ctx, owner.ID, ListInput{Name: "x", GroupID: &othersGroup.ID})
	require.ErrorIs(t, err, ErrForbidden)

	list, err := f.svc.CreateList(ctx, owner.ID, ListInput{Name: "Groceries", Color: "#00ff00"})
	require.NoError(t, err)
	require.Equal(t, "Owner", list.OwnerName)

	updated, err := f.svc.UpdateList(ctx, owner.ID, list.ID, ListPatch{Name: ptr("Food"), Description: ptr("weekly")})
	require.NoError(t, err)
	require.Equal(t, "Food", updated.Name)
	require.Equal(t, "weekly", updated.Description)
	require.Equal(t, "#00ff00", updated.Color)

	mine, err := f.svc.CreateGroup(ctx, owner.ID, "Mine", "")
	require.NoError(t, err)
	moved, err := f.svc.UpdateList(ctx, owner.ID, list.ID, ListPatch{GroupID: &mine.ID})
	require.NoError(t, err)
	require.Equal(t, "Mine", moved.GroupName)
	detached, err := f.svc.UpdateList(ctx, owner.ID, list.ID, ListPatch{GroupID: ptr("")})
	require.NoError(t, err)
	require.Nil(t, detached.GroupID)

	_, err = f.svc.UpdateList(ctx, other.ID, list.ID, ListPatch{Name: ptr("hijack")})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.CreateTodo(ctx, owner.ID, list.ID, TodoInput{Task: "milk"})
	require.NoError(t, err)
	detail, err := f.svc.GetList(ctx, owner.ID, list.ID)
	require.NoError(t, err)
	require.Len(t, detail.Todos, 1)
	require.True(t, detail.Access.Owner)

	require.ErrorIs(t, f.svc.DeleteList(ctx, other.ID, list.ID), ErrForbidden)
	require.NoError(t, f.svc.DeleteList(ctx, owner.ID, list.ID))
	_, err = f.svc.GetList(ctx, owner.ID, list.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSharingRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "Owner", "owner@example.com")
	friend := f.register(t, "Friend", "friend@example.com")
	third := f.register(t, "Third", "third@example.com")
	list, err := f.svc.CreateList(ctx, owner.ID, ListInput{Name: "Trip"})
	require.NoError(t, err)

	_, err = f.svc.ShareList(ctx, owner.ID, list.ID, ShareInput{UserID: owner.ID})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.ShareList(ctx, owner.ID, list.ID, ShareInput{UserID: friend.ID, Role: store.ShareOwner})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.ShareList(ctx, owner.ID, list.ID, ShareInput{Email: "ghost@example.com"})
	require.ErrorIs(t, err, ErrNotFound)

	share, err := f.svc.ShareList(ctx, owner.ID, list.ID, ShareInput{UserID: friend.ID})
	require.NoError(t, err)
	require.Equal(t, store.ShareViewer, share.Role)

	msgs := f.queue.messages(notify.KindListShared)
	require.Len(t, msgs, 1)
	require.Equal(t, "friend@example.com", msgs[0].Recipient)
	require.Equal(t, list.ID, msgs[0].Data["list_id"])

	// only the owner manages shares
	_, err = f.svc.ShareList(ctx, friend.ID, list.ID, ShareInput{UserID: third.ID})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UpdateShareRole(ctx, friend.ID, list.ID, friend.ID, store.ShareContributor)
	require.ErrorIs(t, err, ErrForbidden)

	upgraded, err := f.svc.UpdateShareRole(ctx, owner.ID, list.ID, friend.ID, store.ShareContributor)
	require.NoError(t, err)
	require.Equal(t, store.ShareContributor, upgraded.Role)
	_, err = f.svc.UpdateShareRole(ctx, owner.ID, list.ID, third.ID, store.ShareViewer)
	require.ErrorIs(t, err, ErrNotFound)

	shares, err := f.svc.SharesForList(ctx, friend.ID, list.ID)
	require.NoError(t, err)
	require.Len(t, shares, 1)

	// a shared user may leave on their own
	require.NoError(t, f.svc.Unshare(ctx, friend.ID, list.ID, friend.ID))
	_, err = f.svc.GetList(ctx, friend.ID, list.ID)
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, f.svc.Unshare(ctx, owner.ID, list.ID, friend.ID), ErrNotFound)
}

func TestTodoRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "Owner", "owner@example.com")
	viewer := f.register(t, "Viewer", "viewer@example.com")
	list, err := f.svc.CreateList(ctx, owner.ID, ListInput{Name: "Work"})
	require.NoError(t, err)
	_, err = f.svc.ShareList(ctx, owner.ID, list.ID, ShareInput{UserID: viewer.ID})
	require.NoError(t, err)

	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)

	_, err = f.svc.CreateTodo(ctx, owner.ID, list.ID, TodoInput{Task: " "})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.CreateTodo(ctx, owner.ID, list.ID, TodoInput{Task: "x", Priority: "asap"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.CreateTodo(ctx, owner.ID, list.ID, TodoInput{Task: "x", StartDate: &start, EndDate: &before})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.CreateTodo(ctx, viewer.ID, list.ID, TodoInput{Task: "x"})
	require.ErrorIs(t, err, ErrForbidden)

	todo, err := f.svc.CreateTodo(ctx, owner.ID, list.ID, TodoInput{Task: "report", Priority: "HIGH", StartDate: &start})
	require.NoError(t, err)
	require.Equal(t, store.PriorityHigh, todo.Priority)

	// the end date is checked against the stored start date
	_, err = f.svc.UpdateTodo(ctx, owner.ID, list.ID, todo.ID, TodoPatch{EndDate: &before})
	require.ErrorIs(t, err, ErrInvalidInput)

	toggled, err := f.svc.ToggleTodo(ctx, owner.ID, list.ID, todo.ID)
	require.NoError(t, err)
	require.True(t, toggled.IsCompleted)

	reopened, err := f.svc.UpdateTodo(ctx, owner.ID, list.ID, todo.ID, TodoPatch{IsCompleted: ptr(false), ClearDates: true})
	require.NoError(t, err)
	require.False(t, reopened.IsCompleted)
	require.Nil(t, reopened.StartDate)
	require.Equal(t, "report", reopened.Task)

	got, err := f.svc.GetTodo(ctx, viewer.ID, list.ID, todo.ID)
	require.NoError(t, err)
	require.Equal(t, todo.ID, got.ID)
	todos, err := f.svc.TodosForList(ctx, viewer.ID, list.ID)
	require.NoError(t, err)
	require.Len(t, todos, 1)

	_, err = f.svc.GetTodo(ctx, owner.ID, list.ID, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, f.svc.DeleteTodo(ctx, viewer.ID, list.ID, todo.ID), ErrForbidden)
	require.NoError(t, f.svc.DeleteTodo(ctx, owner.ID, list.ID, todo.ID))
	require.ErrorIs(t, f.svc.DeleteTodo(ctx, owner.ID, list.ID, todo.ID), ErrNotFound)
}
