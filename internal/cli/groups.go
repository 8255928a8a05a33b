package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cexll/tasksync/internal/client"
	"github.com/cexll/tasksync/internal/localstore"
)

func newGroupsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"group"},
		Short:   "Manage groups and their members",
	}
	cmd.AddCommand(
		newGroupsLsCmd(app),
		newGroupsShowCmd(app),
		newGroupsCreateCmd(app),
		newGroupsUpdateCmd(app),
		newGroupsDeleteCmd(app),
		newGroupsInviteCmd(app),
		newGroupsRoleCmd(app),
		newGroupsRemoveCmd(app),
	)
	return cmd
}

func newGroupsLsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the groups you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			groups, err := c.Groups(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return app.emit(groups, func() {
				if len(groups) == 0 {
					app.printf("You are not in any group.\n")
					return
				}
				rows := make([][]string, 0, len(groups))
				for _, g := range groups {
					rows = append(rows, []string{
						g.ID, g.Name, orDash(g.Role),
						strconv.Itoa(g.MembersCount), strconv.Itoa(g.TodoListsCount),
					})
				}
				app.table([]string{"ID", "NAME", "ROLE", "MEMBERS", "LISTS"}, rows)
			})
		},
	}
}

func newGroupsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show GROUP_ID",
		Short: "Show a group with its members and lists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			g, err := c.GetGroup(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			return app.emit(g, func() {
				app.printf("%s  (%s)\n", g.Name, g.ID)
				if g.Description != "" {
					app.printf("%s\n", g.Description)
				}
				app.printf("Your role: %s\n", orDash(g.Role))
				if len(g.Permissions) > 0 {
					app.printf("Permissions: %s\n", strings.Join(g.Permissions, ", "))
				}
				app.printf("\nMembers:\n")
				rows := make([][]string, 0, len(g.Members))
				for _, m := range g.Members {
					rows = append(rows, []string{m.ID, m.Name, m.Email, orDash(m.Role)})
				}
				app.table([]string{"USER ID", "NAME", "EMAIL", "ROLE"}, rows)
				if len(g.TodoLists) > 0 {
					app.printf("\nLists:\n")
					rows = rows[:0]
					for _, l := range g.TodoLists {
						rows = append(rows, []string{l.ID, l.Name, l.Owner.Name})
					}
					app.table([]string{"ID", "NAME", "OWNER"}, rows)
				}
			})
		},
	}
}

func newGroupsCreateCmd(app *App) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a group; you become its owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			var created client.Group
			err = app.mutate(
				func(st *localstore.Store) (string, error) {
					_, opID := st.AddGroup(client.Group{Name: args[0], Description: description})
					return opID, nil
				},
				func() (string, error) {
					var err error
					created, err = c.CreateGroup(cmd.Context(), args[0], description)
					return created.ID, err
				},
			)
			if err != nil {
				return err
			}
			return app.emit(created, func() { app.printf("Created group %q (%s)\n", created.Name, created.ID) })
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Group description")
	return cmd
}

func newGroupsUpdateCmd(app *App) *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "update GROUP_ID",
		Short: "Rename a group or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			var namePtr, descPtr *string
			if cmd.Flags().Changed("name") {
				namePtr = &name
			}
			if cmd.Flags().Changed("description") {
				descPtr = &description
			}
			var updated client.Group
			err = app.mutate(
				func(st *localstore.Store) (string, error) {
					_, opID, err := st.UpdateGroup(args[0], namePtr, descPtr)
					return opID, err
				},
				func() (string, error) {
					var err error
					updated, err = c.UpdateGroup(cmd.Context(), args[0], namePtr, descPtr)
					return "", err
				},
			)
			if err != nil {
				return err
			}
			return app.emit(updated, func() { app.printf("Updated group %q\n", updated.Name) })
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	return cmd
}

func newGroupsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete GROUP_ID",
		Short: "Delete a group; its lists are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			err = app.mutate(
				func(st *localstore.Store) (string, error) { return st.DeleteGroup(args[0]) },
				func() (string, error) { return "", c.DeleteGroup(cmd.Context(), args[0]) },
			)
			if err != nil {
				return err
			}
			app.printf("Deleted group %s\n", args[0])
			return nil
		},
	}
}

func newGroupsInviteCmd(app *App) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "invite GROUP_ID EMAIL",
		Short: "Add a user to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			u, err := c.Invite(cmd.Context(), args[0], client.MemberInput{Email: args[1], Role: role})
			if err != nil {
				return explain(err)
			}
			return app.emit(u, func() { app.printf("Added %s to the group as %s\n", u.Email, orDash(u.Role)) })
		},
	}
	cmd.Flags().StringVar(&role, "role", "viewer", "Member role: contributor or viewer")
	return cmd
}

func newGroupsRoleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "role GROUP_ID [USER_ID ROLE]",
		Short: "Show your role, or change a member's role",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return nil
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				r, err := c.MyGroupRole(cmd.Context(), args[0])
				if err != nil {
					return explain(err)
				}
				return app.emit(r, func() {
					app.printf("%s (%s)\n", r.Role.Name, strings.Join(r.Role.Permissions, ", "))
				})
			}
			m, err := c.ChangeMemberRole(cmd.Context(), args[0], client.MemberInput{UserID: args[1], Role: args[2]})
			if err != nil {
				return explain(err)
			}
			return app.emit(m, func() { app.printf("%s is now %s\n", m.UserID, m.Role) })
		},
	}
}

func newGroupsRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove GROUP_ID USER_ID",
		Short: "Remove a member from a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			if err := c.RemoveMember(cmd.Context(), args[0], args[1]); err != nil {
				return explain(err)
			}
			app.printf("Removed %s from the group\n", args[1])
			return nil
		},
	}
}

func newRolesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the roles and their permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roles, err := app.anonClient().Roles(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return app.emit(roles, func() {
				rows := make([][]string, 0, len(roles))
				for _, r := range roles {
					rows = append(rows, []string{r.Name, strings.Join(r.Permissions, ", ")})
				}
				app.table([]string{"ROLE", "PERMISSIONS"}, rows)
			})
		},
	}
}
