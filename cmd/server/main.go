package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cexll/tasksync/internal/api"
	"github.com/cexll/tasksync/internal/auth"
	"github.com/cexll/tasksync/internal/config"
	"github.com/cexll/tasksync/internal/dispatcher"
	"github.com/cexll/tasksync/internal/logging"
	"github.com/cexll/tasksync/internal/notify"
	"github.com/cexll/tasksync/internal/service"
	"github.com/cexll/tasksync/internal/store"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type serveFunc func(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration) error

var (
	loadDotEnv              = godotenv.Load
	openStore               = store.Open
	newDispatcher           = dispatcher.New
	newLogger               = logging.New
	defaultServe  serveFunc = listenAndServe
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, defaultServe); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, serve serveFunc) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting tasksync server",
		zap.String("version", version),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.DatabasePath),
		zap.Int("dispatcher_workers", cfg.DispatcherWorkers),
		zap.Int("dispatcher_queue_size", cfg.DispatcherQueueSize),
		zap.Int("dispatcher_max_attempts", cfg.DispatcherMaxAttempts),
	)

	st, err := openStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}()
	if err := st.SeedRoles(ctx); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}

	notifier := buildNotifier(cfg, logger)
	queue := newDispatcher(notifier, dispatcher.Config{
		Workers:           cfg.DispatcherWorkers,
		QueueSize:         cfg.DispatcherQueueSize,
		MaxAttempts:       cfg.DispatcherMaxAttempts,
		InitialBackoff:    cfg.DispatcherRetryInitial(),
		BackoffMultiplier: cfg.DispatcherBackoffMultiplier,
		MaxBackoff:        cfg.DispatcherRetryMax(),
	}, logger.Named("dispatcher"))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := queue.Shutdown(shutdownCtx); err != nil {
			logger.Warn("dispatcher shutdown incomplete", zap.Error(err))
		}
	}()

	svc := service.New(service.Options{
		Store:         st,
		Tokens:        auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Hasher:        auth.NewHasher(cfg.BcryptCost),
		Queue:         queue,
		Logger:        logger.Named("service"),
		ResetSecret:   cfg.ResetSecret,
		ResetTTL:      cfg.ResetCodeTTL,
		ResetThrottle: cfg.ResetThrottle,
	})

	router := api.NewRouter(svc, api.Options{
		Logger:       logger.Named("http"),
		CookieSecure: cfg.CookieSecure,
		Version:      version,
	})

	addr := cfg.Addr()
	logger.Info("server listening",
		zap.String("addr", addr),
		zap.String("api", "http://localhost"+addr+api.BasePath),
		zap.String("health", "http://localhost"+addr+api.BasePath+"/health"),
	)

	if err := serve(ctx, addr, router, cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func buildNotifier(cfg *config.Config, logger *zap.Logger) notify.Notifier {
	if cfg.NotifyWebhookURL == "" {
		logger.Info("notifications are logged; set NOTIFY_WEBHOOK_URL to deliver them")
		return notify.NewLogNotifier(logger.Named("notify"))
	}
	logger.Info("notifications delivered by webhook", zap.String("url", cfg.NotifyWebhookURL))
	return notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret, &http.Client{Timeout: 10 * time.Second})
}

// listenAndServe runs an HTTP server until ctx is cancelled, then shuts it
// down within shutdownTimeout.
func listenAndServe(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
