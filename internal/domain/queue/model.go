package queue

import (
	"encoding/json"
	"time"

	"clinicsync/internal/domain/record"
)

// Action is the mutation intent carried by a queue item.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Priority orders pending items; it is decided by the domain at enqueue time.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the drain order of the priority, lower first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Status is the lifecycle state of a queue item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSyncing   Status = "syncing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Item is one durable mutation intent waiting to reach the server.
type Item struct {
	ID           string          `json:"id"`
	Entity       record.Entity   `json:"entity"`
	Action       Action          `json:"action"`
	Data         json.RawMessage `json:"data,omitempty"`
	LocalID      string          `json:"local_id"`
	RemoteID     string          `json:"remote_id,omitempty"`
	Priority     Priority        `json:"priority"`
	Retries      int             `json:"retries"`
	Status       Status          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
