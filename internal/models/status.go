package models

import (
	"errors"
	"fmt"
)

type QueueStatus string

const (
	QueueStatusQueued    QueueStatus = "queued"
	QueueStatusRendering QueueStatus = "rendering"
	QueueStatusDone      QueueStatus = "done"
	QueueStatusFailed    QueueStatus = "failed"
)

// ErrInvalidTransition is returned for any status change outside the transition table.
var ErrInvalidTransition = errors.New("invalid queue status transition")

// queueTransitions is forward-only; done and failed have no outgoing edges.
var queueTransitions = map[QueueStatus][]QueueStatus{
	QueueStatusQueued:    {QueueStatusRendering, QueueStatusFailed},
	QueueStatusRendering: {QueueStatusDone, QueueStatusFailed},
	QueueStatusDone:      nil,
	QueueStatusFailed:    nil,
}

// IsTerminal reports whether no transition leaves the status.
func (s QueueStatus) IsTerminal() bool {
	return s == QueueStatusDone || s == QueueStatusFailed
}

func (s QueueStatus) CanTransition(to QueueStatus) bool {
	for _, next := range queueTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the item to the given status, enforcing the transition table.
func (q *QueueItem) Transition(to QueueStatus) error {
	if !q.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s (item %d)", ErrInvalidTransition, q.Status, to, q.Index)
	}
	q.Status = to
	return nil
}
