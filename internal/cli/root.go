// Package cli implements the tasksync command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cexll/tasksync/internal/client"
	"github.com/cexll/tasksync/internal/localstore"
	"github.com/cexll/tasksync/internal/session"
)

// App carries everything a command needs. Tests build one with their own
// streams, home directory and HTTP client.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	Home       string
	ServerURL  string
	Token      string
	HTTPClient *http.Client
	Logger     *zap.Logger

	jsonOutput bool
	verbose    bool
	prompt     *prompter
}

// NewApp reads TASKSYNC_HOME, TASKSYNC_SERVER_URL and TASKSYNC_TOKEN.
func NewApp() (*App, error) {
	home, err := session.DefaultDir()
	if err != nil {
		return nil, err
	}
	return &App{
		In:        os.Stdin,
		Out:       os.Stdout,
		Err:       os.Stderr,
		Home:      home,
		ServerURL: strings.TrimSpace(os.Getenv("TASKSYNC_SERVER_URL")),
		Token:     strings.TrimSpace(os.Getenv("TASKSYNC_TOKEN")),
	}, nil
}

// Execute runs the CLI with os.Args.
func Execute(version string) error {
	app, err := NewApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	root := NewRootCmd(app)
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(app.Err, "Error:", err)
		return err
	}
	return nil
}

// NewRootCmd builds the command tree bound to app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "tasksync",
		Short: "TaskSync - shared todo lists from the terminal",
		Long: `tasksync manages your TaskSync lists, todos and groups.

Sign in with "tasksync login" or create an account with "tasksync register".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SetContext(contextOrBackground(cmd.Context()))
		},
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "Print JSON instead of tables")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Log HTTP retries to stderr")
	root.PersistentFlags().StringVar(&app.ServerURL, "server", app.ServerURL, "API base URL (env TASKSYNC_SERVER_URL)")

	root.AddCommand(
		newLoginCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newRegisterCmd(app),
		newResetPasswordCmd(app),
		newProfileCmd(app),
		newListsCmd(app),
		newTodoCmd(app),
		newGroupsCmd(app),
		newRolesCmd(app),
		newSyncCmd(app),
	)
	return root
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func (a *App) sessions() *session.FileStore {
	return session.NewFileStore(a.Home)
}

func (a *App) baseURL() string {
	if a.ServerURL != "" {
		return a.ServerURL
	}
	if s, err := a.sessions().Load(); err == nil && s.BaseURL != "" {
		return s.BaseURL
	}
	return client.DefaultBaseURL
}

func (a *App) logger() *zap.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	if !a.verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// anonClient returns a client without credentials.
func (a *App) anonClient() *client.Client {
	return client.New(a.baseURL(), client.WithHTTPClient(a.HTTPClient), client.WithLogger(a.logger()))
}

// authedClient returns a client carrying the stored session, or the
// TASKSYNC_TOKEN override.
func (a *App) authedClient() (*client.Client, error) {
	token := a.Token
	if token == "" {
		s, err := a.sessions().Verify()
		switch {
		case errors.Is(err, session.ErrNoSession):
			return nil, errors.New(`not signed in: run "tasksync login" first`)
		case errors.Is(err, session.ErrSessionExpired):
			return nil, errors.New(`session expired: run "tasksync login" again`)
		case err != nil:
			return nil, err
		}
		token = s.AccessToken
	}
	c := a.anonClient()
	c.SetToken(token)
	return c, nil
}

// explain turns an expired session into a friendlier error.
func explain(err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf(`%w (run "tasksync login" to sign in again)`, err)
	}
	return err
}

func (a *App) localStorePath() string {
	return filepath.Join(a.Home, localstore.FileName)
}

// openLocal loads the local cache. A corrupt cache is replaced by an empty
// one; the next sync refills it.
func (a *App) openLocal() *localstore.Store {
	st, err := localstore.Open(a.localStorePath())
	if err != nil {
		fmt.Fprintf(a.Err, "warning: ignoring local cache: %v\n", err)
		return localstore.New(a.localStorePath())
	}
	return st
}

// mutate applies a change optimistically to the local cache, sends it to the
// server, then reconciles or rolls back the cache from the outcome.
func (a *App) mutate(local func(*localstore.Store) (string, error), remote func() (string, error)) error {
	st := a.openLocal()
	opID, localErr := local(st)

	serverID, err := remote()
	if localErr == nil {
		if err != nil {
			_ = st.Rollback(opID)
		} else {
			_ = st.Reconcile(opID, serverID)
		}
		if saveErr := st.Save(); saveErr != nil {
			fmt.Fprintf(a.Err, "warning: could not save local cache: %v\n", saveErr)
		}
	}
	return explain(err)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
