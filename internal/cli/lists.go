package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cexll/tasksync/internal/client"
	"github.com/cexll/tasksync/internal/localstore"
)

func newListsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lists",
		Aliases: []string{"list"},
		Short:   "Manage todo lists",
	}
	cmd.AddCommand(
		newListsLsCmd(app),
		newListsShowCmd(app),
		newListsCreateCmd(app),
		newListsRenameCmd(app),
		newListsDeleteCmd(app),
		newListsMoveCmd(app),
		newListsShareCmd(app),
		newListsUnshareCmd(app),
	)
	return cmd
}

func newListsLsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List your todo lists, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			lists, err := c.Lists(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return app.emit(lists, func() {
				if len(lists) == 0 {
					app.printf("No lists yet. Create one with \"tasksync lists create NAME\".\n")
					return
				}
				rows := make([][]string, 0, len(lists))
				for _, l := range lists {
					group := "-"
					if l.Group != nil {
						group = l.Group.Name
					}
					rows = append(rows, []string{
						l.ID,
						l.Name,
						fmt.Sprintf("%d/%d", l.CompletedCount, l.TodoItemsCount),
						l.Owner.Name,
						group,
						strconv.Itoa(l.SharedWithCount),
					})
				}
				app.table([]string{"ID", "NAME", "DONE", "OWNER", "GROUP", "SHARED"}, rows)
			})
		},
	}
}

func newListsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show LIST_ID",
		Short: "Show a list with its todos and shares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			l, err := c.GetList(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			return app.emit(l, func() { app.printList(l) })
		},
	}
}

func (a *App) printList(l client.TodoList) {
	a.printf("%s  (%s)\n", l.Name, l.ID)
	if l.Description != "" {
		a.printf("%s\n", l.Description)
	}
	a.printf("Owner: %s <%s>   Your role: %s\n", l.Owner.Name, l.Owner.Email, orDash(l.Role))
	if l.Group != nil {
		a.printf("Group: %s\n", l.Group.Name)
	}
	a.printf("\n")
	if len(l.TodoItems) == 0 {
		a.printf("No todos.\n")
	} else {
		rows := make([][]string, 0, len(l.TodoItems))
		for _, t := range l.TodoItems {
			rows = append(rows, []string{checkbox(t.IsCompleted), t.ID, t.Task, t.Priority, formatDate(t.StartDate), formatDate(t.EndDate)})
		}
		a.table([]string{"", "ID", "TASK", "PRIORITY", "START", "END"}, rows)
	}
	if len(l.SharedWith) > 0 {
		a.printf("\nShared with:\n")
		rows := make([][]string, 0, len(l.SharedWith))
		for _, s := range l.SharedWith {
			rows = append(rows, []string{s.UserID, s.Name, s.Email, s.Role})
		}
		a.table([]string{"USER ID", "NAME", "EMAIL", "ROLE"}, rows)
	}
}

func newListsCreateCmd(app *App) *cobra.Command {
	var in client.ListInput
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			in.Name = args[0]
			var created client.TodoList
			err = app.mutate(
				func(st *localstore.Store) (string, error) {
					local := client.TodoList{Name: in.Name, Description: in.Description, Color: in.Color}
					if in.GroupID != "" {
						gid := in.GroupID
						local.GroupID = &gid
					}
					_, opID := st.AddList(local)
					return opID, nil
				},
				func() (string, error) {
					var err error
					created, err = c.CreateList(cmd.Context(), in)
					return created.ID, err
				},
			)
			if err != nil {
				return err
			}
			return app.emit(created, func() { app.printf("Created list %q (%s)\n", created.Name, created.ID) })
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "List description")
	cmd.Flags().StringVar(&in.Color, "color", "", "List color, e.g. #ff8800")
	cmd.Flags().StringVar(&in.GroupID, "group", "", "Create the list inside this group")
	return cmd
}

func newListsRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename LIST_ID NAME",
		Short: "Rename a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			patch := client.ListPatch{Name: &args[1]}
			var updated client.TodoList
			err = app.mutate(
				func(st *localstore.Store) (string, error) {
					_, opID, err := st.UpdateList(args[0], patch)
					return opID, err
				},
				func() (string, error) {
					var err error
					updated, err = c.UpdateList(cmd.Context(), args[0], patch)
					return "", err
				},
			)
			if err != nil {
				return err
			}
			return app.emit(updated, func() { app.printf("Renamed list to %q\n", updated.Name) })
		},
	}
}

func newListsMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move LIST_ID [GROUP_ID]",
		Short: "Move a list into a group, or out of its group when GROUP_ID is omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			listID, groupID := args[0], ""
			if len(args) == 2 {
				groupID = args[1]
			}
			var updated client.TodoList
			err = app.mutate(
				func(st *localstore.Store) (string, error) {
					if groupID != "" {
						return st.AddListToGroup(groupID, listID)
					}
					l, ok := st.GetList(listID)
					if !ok {
						return "", localstore.ErrListNotFound
					}
					if l.GroupID == nil {
						return "", localstore.ErrGroupNotFound
					}
					return st.RemoveListFromGroup(*l.GroupID, listID)
				},
				func() (string, error) {
					var err error
					updated, err = c.UpdateList(cmd.Context(), listID, client.ListPatch{GroupID: &groupID})
					return "", err
				},
			)
			if err != nil {
				return err
			}
			return app.emit(updated, func() {
				if updated.Group != nil {
					app.printf("Moved %q into %s\n", updated.Name, updated.Group.Name)
					return
				}
				app.printf("%q is no longer in a group\n", updated.Name)
			})
		},
	}
}

func newListsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete LIST_ID",
		Short: "Delete a list and its todos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			err = app.mutate(
				func(st *localstore.Store) (string, error) { return st.DeleteList(args[0]) },
				func() (string, error) { return "", c.DeleteList(cmd.Context(), args[0]) },
			)
			if err != nil {
				return err
			}
			app.printf("Deleted list %s\n", args[0])
			return nil
		},
	}
}

func newListsShareCmd(app *App) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "share LIST_ID EMAIL",
		Short: "Share a list with another user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			share, err := c.ShareList(cmd.Context(), args[0], client.MemberInput{Email: args[1], Role: role})
			if err != nil {
				return explain(err)
			}
			// The server picks the share's user id, so the cache is updated
			// after the fact.
			st := app.openLocal()
			if opID, err := st.ShareList(args[0], share); err == nil {
				_ = st.Reconcile(opID, "")
				_ = st.Save()
			}
			return app.emit(share, func() { app.printf("Shared with %s as %s\n", share.Email, share.Role) })
		},
	}
	cmd.Flags().StringVar(&role, "role", "viewer", "Share role: viewer or contributor")
	return cmd
}

func newListsUnshareCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unshare LIST_ID USER_ID",
		Short: "Stop sharing a list with a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			err = app.mutate(
				func(st *localstore.Store) (string, error) { return st.RemoveShare(args[0], args[1]) },
				func() (string, error) { return "", c.Unshare(cmd.Context(), args[0], args[1]) },
			)
			if err != nil {
				return err
			}
			app.printf("Removed share for %s\n", args[1])
			return nil
		},
	}
}
