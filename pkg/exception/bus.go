package exception

import "errors"

var (
	ErrQueueFull   = errors.New("bus: queue full")
	ErrQueueClosed = errors.New("bus: queue closed")
)
