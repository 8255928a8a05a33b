package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cexll/tasksync/internal/client"
)

// syncConcurrency bounds parallel list fetches.
const syncConcurrency = 4

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the local cache from the server",
		Long: `sync downloads your lists, their todos and your groups into the local
cache, replacing whatever is there. Pending local changes are dropped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.authedClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			summaries, err := c.Lists(ctx)
			if err != nil {
				return explain(err)
			}

			lists := make([]client.TodoList, len(summaries))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(syncConcurrency)
			for i, l := range summaries {
				g.Go(func() error {
					full, err := c.GetList(gctx, l.ID)
					if err != nil {
						return err
					}
					lists[i] = full
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return explain(err)
			}

			groups, err := c.Groups(ctx)
			if err != nil {
				return explain(err)
			}

			st := app.openLocal()
			st.Replace(lists, groups)
			if err := st.Save(); err != nil {
				return err
			}
			todos := 0
			for _, l := range lists {
				todos += len(l.TodoItems)
			}
			summary := map[string]int{"lists": len(lists), "todos": todos, "groups": len(groups)}
			return app.emit(summary, func() {
				app.printf("Synced %d lists, %d todos and %d groups\n", len(lists), todos, len(groups))
			})
		},
	}
}
