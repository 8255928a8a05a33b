package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cexll/tasksync/internal/client"
	"github.com/cexll/tasksync/internal/localstore"
)

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
}

func newTodoCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todo",
		Short: "Manage todos inside a list",
	}
	cmd.AddCommand(newTodoAddCmd(app), newTodoDoneCmd(app), newTodoEditCmd(app), newTodoRmCmd(app))
	return cmd
}

func newTodoAddCmd(app *App) *cobra.Command {
	var in client.TodoInput
	var start, end string
	cmd := &cobra.Command{
		Use:   "add LIST_ID TASK",
		Short: "Add a todo to a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			in.Task = args[1]
			if in.StartDate, err = parseDate(start); err != nil {
				return err
			}
			if in.EndDate, err = parseDate(end); err != nil {
				return err
			}
			var created client.Todo
			err = app.mutate(
				func(st *localstore.Store) (string, error) {
					_, opID, err := st.AddTodo(args[0], client.Todo{
						Task: in.Task, Description: in.Description, Priority: in.Priority,
						StartDate: in.StartDate, EndDate: in.EndDate,
					})
					return opID, err
				},
				func() (string, error) {
					var err error
					created, err = c.CreateTodo(cmd.Context(), args[0], in)
					return created.ID, err
				},
			)
			if err != nil {
				return err
			}
			return app.emit(created, func() { app.printf("Added %q (%s)\n", created.Task, created.ID) })
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "Todo description")
	cmd.Flags().StringVarP(&in.Priority, "priority", "p", "", "low, medium, normal, high, urgent or critical")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	return cmd
}

func newTodoDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done LIST_ID TODO_ID",
		Short: "Toggle a todo between done and open",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			var todo client.Todo
			err = app.mutate(
				func(st *localstore.Store) (string, error) {
					_, opID, err := st.ToggleTodo(args[0], args[1])
					return opID, err
				},
				func() (string, error) {
					var err error
					todo, err = c.ToggleTodo(cmd.Context(), args[0], args[1])
					return "", err
				},
			)
			if err != nil {
				return err
			}
			return app.emit(todo, func() { app.printf("%s %s\n", checkbox(todo.IsCompleted), todo.Task) })
		},
	}
}

func newTodoEditCmd(app *App) *cobra.Command {
	var task, description, priority, start, end string
	var clearDates bool
	cmd := &cobra.Command{
		Use:   "edit LIST_ID TODO_ID",
		Short: "Change a todo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			var patch client.TodoPatch
			flags := cmd.Flags()
			if flags.Changed("task") {
				patch.Task = &task
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("priority") {
				patch.Priority = &priority
			}
			if patch.StartDate, err = parseDate(start); err != nil {
				return err
			}
			if patch.EndDate, err = parseDate(end); err != nil {
				return err
			}
			patch.ClearDates = clearDates

			var todo client.Todo
			err = app.mutate(
				func(st *localstore.Store) (string, error) {
					_, opID, err := st.UpdateTodo(args[0], args[1], patch)
					return opID, err
				},
				func() (string, error) {
					var err error
					todo, err = c.UpdateTodo(cmd.Context(), args[0], args[1], patch)
					return "", err
				},
			)
			if err != nil {
				return err
			}
			return app.emit(todo, func() { app.printf("Updated %q\n", todo.Task) })
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "New task text")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "New priority")
	cmd.Flags().StringVar(&start, "start", "", "New start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "New end date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearDates, "clear-dates", false, "Remove start and end dates")
	return cmd
}

func newTodoRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm LIST_ID TODO_ID",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			err = app.mutate(
				func(st *localstore.Store) (string, error) { return st.DeleteTodo(args[0], args[1]) },
				func() (string, error) { return "", c.DeleteTodo(cmd.Context(), args[0], args[1]) },
			)
			if err != nil {
				return err
			}
			app.printf("Deleted todo %s\n", args[1])
			return nil
		},
	}
}
