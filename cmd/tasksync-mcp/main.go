package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/cexll/tasksync/internal/client"
	"github.com/cexll/tasksync/internal/logging"
	"github.com/cexll/tasksync/internal/session"
)

var version = "dev"

type config struct {
	ServerURL string `env:"TASKSYNC_SERVER_URL"`
	Home      string `env:"TASKSYNC_HOME"`
	Token     string `env:"TASKSYNC_TOKEN"`
	LogLevel  string `env:"TASKSYNC_LOG_LEVEL" envDefault:"info"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &mcp.StdioTransport{}); err != nil {
		fmt.Fprintf(os.Stderr, "tasksync-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, transport mcp.Transport) error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	// zap writes to stderr, leaving stdout to the stdio transport.
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	server := newServer(c, logger)
	logger.Info("starting tasksync MCP server", zap.String("version", version), zap.String("api", c.BaseURL()))
	if err := server.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	logger.Info("tasksync MCP server stopped")
	return nil
}

func newServer(c *client.Client, logger *zap.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "tasksync",
		Version: version,
	}, nil)
	NewTools(c, logger).Register(server)
	return server
}

// newClient authenticates with TASKSYNC_TOKEN or the session saved by
// "tasksync login".
func newClient(cfg config, logger *zap.Logger) (*client.Client, error) {
	baseURL := cfg.ServerURL
	token := cfg.Token
	if token == "" {
		dir := cfg.Home
		if dir == "" {
			var err error
			if dir, err = session.DefaultDir(); err != nil {
				return nil, err
			}
		}
		s, err := session.NewFileStore(dir).Verify()
		switch {
		case errors.Is(err, session.ErrNoSession):
			return nil, errors.New(`not signed in: run "tasksync login" or set TASKSYNC_TOKEN`)
		case errors.Is(err, session.ErrSessionExpired):
			return nil, errors.New(`session expired: run "tasksync login" again`)
		case err != nil:
			return nil, err
		}
		token = s.AccessToken
		if baseURL == "" {
			baseURL = s.BaseURL
		}
	}
	if baseURL == "" {
		baseURL = client.DefaultBaseURL
	}
	return client.New(baseURL, client.WithToken(token), client.WithLogger(logger)), nil
}
