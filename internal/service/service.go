// Package service implements TaskSync's business rules on top of the store:
// accounts, lists, todos, sharing, groups and roles.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cexll/tasksync/internal/auth"
	"github.com/cexll/tasksync/internal/notify"
	"github.com/cexll/tasksync/internal/store"
)

// Queue accepts notifications for asynchronous delivery.
type Queue interface {
	Enqueue(msg notify.Message) error
}

// Options wires a Service.
type Options struct {
	Store  *store.Store
	Tokens *auth.TokenIssuer
	Hasher *auth.Hasher
	Queue  Queue
	Logger *zap.Logger

	ResetSecret   string
	ResetTTL      time.Duration
	ResetThrottle time.Duration
}

// Service is safe for concurrent use.
type Service struct {
	store  *store.Store
	tokens *auth.TokenIssuer
	hasher *auth.Hasher
	queue  Queue
	logger *zap.Logger

	resetSecret    string
	resetTTL       time.Duration
	resetRequests  *throttle
	usedResetToken *throttle

	now func() time.Time
}

const (
	searchLimit      = 20
	maxResetAttempts = 5
)

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hasher := opts.Hasher
	if hasher == nil {
		hasher = auth.NewHasher(0)
	}
	resetTTL := opts.ResetTTL
	if resetTTL <= 0 {
		resetTTL = 15 * time.Minute
	}
	return &Service{
		store:          opts.Store,
		tokens:         opts.Tokens,
		hasher:         hasher,
		queue:          opts.Queue,
		logger:         logger,
		resetSecret:    opts.ResetSecret,
		resetTTL:       resetTTL,
		resetRequests:  newThrottle(opts.ResetThrottle),
		usedResetToken: newThrottle(resetTTL),
		now:            time.Now,
	}
}

// TokenTTL is the lifetime of session tokens issued at login.
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// notify enqueues msg, logging instead of failing when the queue refuses it.
func (s *Service) notify(msg notify.Message) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(msg); err != nil {
		s.logger.Warn("notification dropped",
			zap.String("kind", string(msg.Kind)),
			zap.String("notification_id", msg.ID),
			zap.Error(err),
		)
	}
}
