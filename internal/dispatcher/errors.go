package dispatcher

import "errors"

var (
	// ErrQueueFull is returned when the dispatcher queue has no free slot.
	ErrQueueFull = errors.New("dispatcher queue is full")
	// ErrQueueClosed is returned after Shutdown has been called.
	ErrQueueClosed = errors.New("dispatcher queue is closed")
)
