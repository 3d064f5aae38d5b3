package webhook

import "errors"

// Sentinel errors the handler maps to HTTP 503 so GitHub redelivers the
// webhook instead of dropping it.
var (
	// ErrQueueFull means the dispatcher queue has no room for another task.
	ErrQueueFull = errors.New("task queue is full")
	// ErrQueueClosed means the dispatcher has been shut down.
	ErrQueueClosed = errors.New("task queue is closed")
)
