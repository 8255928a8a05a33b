// Package dispatcher delivers notifications asynchronously through a
// bounded worker pool with retry.
package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cexll/tasksync/internal/notify"
)

// Config controls dispatcher behaviour
type Config struct {
	Workers           int
	QueueSize         int
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
	// SendTimeout bounds a single delivery attempt.
	SendTimeout time.Duration
}

// Dispatcher serialises delivery per recipient and retries failed sends with backoff
type Dispatcher struct {
	notifier notify.Notifier
	cfg      Config
	logger   *zap.Logger

	queue chan *queueItem

	keyedLocks *keyedMutex

	// stateMu orders Enqueue against Shutdown: a message accepted under the
	// read lock is in the queue before workers start draining.
	stateMu sync.RWMutex
	stopped bool

	stopCh  chan struct{}
	wg      sync.WaitGroup
	retries sync.WaitGroup

	once sync.Once
}

type queueItem struct {
	msg     notify.Message
	attempt int
}

// New creates a dispatcher and starts its workers.
func New(notifier notify.Notifier, cfg Config, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	normalized := normalizeConfig(cfg)
	d := &Dispatcher{
		notifier:   notifier,
		cfg:        normalized,
		logger:     logger,
		queue:      make(chan *queueItem, normalized.QueueSize),
		keyedLocks: newKeyedMutex(),
		stopCh:     make(chan struct{}),
	}
	d.startWorkers()
	return d
}

func normalizeConfig(cfg Config) Config {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 16
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 5 * time.Second
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = 2
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Minute
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return cfg
}

func (d *Dispatcher) startWorkers() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Enqueue queues a message for delivery. It never blocks.
func (d *Dispatcher) Enqueue(msg notify.Message) error {
	if msg.Recipient == "" {
		return errors.New("dispatcher enqueue: recipient is required")
	}

	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	if d.stopped {
		return ErrQueueClosed
	}

	select {
	case d.queue <- &queueItem{msg: msg, attempt: 1}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopCh:
			d.drain()
			return
		case item := <-d.queue:
			d.process(item)
		}
	}
}

// drain delivers whatever is still queued once shutdown starts. Failed
// deliveries are not retried at this point.
func (d *Dispatcher) drain() {
	for {
		select {
		case item := <-d.queue:
			d.process(item)
		default:
			return
		}
	}
}

func (d *Dispatcher) process(item *queueItem) {
	msg := item.msg
	msg.Attempt = item.attempt
	key := msg.Recipient
	log := d.logger.With(
		zap.String("notification_id", msg.ID),
		zap.String("kind", string(msg.Kind)),
		zap.Int("attempt", item.attempt),
	)

	d.keyedLocks.Lock(key)
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	err := d.notifier.Send(ctx, msg)
	cancel()
	d.keyedLocks.Unlock(key)

	if err != nil {
		log.Warn("notification delivery failed", zap.Error(err))
		if notify.IsNonRetryable(err) {
			log.Warn("notification marked non-retryable; no further attempts")
			return
		}
		d.handleRetry(item, err)
		return
	}

	log.Debug("notification delivered")
}

func (d *Dispatcher) handleRetry(item *queueItem, sendErr error) {
	if item.attempt >= d.cfg.MaxAttempts {
		d.logger.Error("notification exceeded max attempts",
			zap.String("notification_id", item.msg.ID),
			zap.Int("max_attempts", d.cfg.MaxAttempts),
			zap.Error(sendErr),
		)
		return
	}

	select {
	case <-d.stopCh:
		return
	default:
	}

	nextAttempt := item.attempt + 1
	delay := d.backoffDuration(nextAttempt)
	d.logger.Info("scheduling notification retry",
		zap.String("notification_id", item.msg.ID),
		zap.Int("attempt", nextAttempt),
		zap.Duration("delay", delay),
	)

	d.retries.Add(1)
	go func() {
		defer d.retries.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			d.enqueueRetry(&queueItem{msg: item.msg, attempt: nextAttempt})
		case <-d.stopCh:
			return
		}
	}()
}

func (d *Dispatcher) enqueueRetry(item *queueItem) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case d.queue <- item:
			return
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) backoffDuration(attempt int) time.Duration {
	backoff := float64(d.cfg.InitialBackoff)
	for i := 2; i < attempt; i++ {
		backoff *= d.cfg.BackoffMultiplier
		if backoff >= float64(d.cfg.MaxBackoff) {
			return d.cfg.MaxBackoff
		}
	}
	return time.Duration(backoff)
}

// Shutdown stops accepting messages, lets workers drain the queue and waits
// for them until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.once.Do(func() {
		d.stateMu.Lock()
		d.stopped = true
		close(d.stopCh)
		d.stateMu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.wg.Wait()
		d.retries.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		locks: make(map[string]*keyedEntry),
	}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases key and forgets it once no goroutine holds or waits on it.
func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}
