package orchestrator

import (
	"errors"
	"fmt"
)

var (
	ErrRunning      = errors.New("render queue is already running")
	ErrEmptyQueue   = errors.New("no queued items to render")
	ErrQueueFull    = errors.New("render queue is full")
	ErrItemNotFound = errors.New("queue item not found")

	errCancelled = errors.New("render cancelled")
)

// ConfigError is a missing or inconsistent setting detected before a run starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cloud render config: %s %s", e.Field, e.Reason)
}
