// Package status records how far the background write of each answered turn has got.
package status

import (
	"context"
	"time"

	"agent-neo/backend/internal/graph"
)

// State is the persistence state of one turn.
type State string

// Turn states. StateRejected means the chain guard refused the append and
// nothing of the turn was written.
const (
	StatePending  State = "pending"
	StateLogged   State = "logged"
	StateFailed   State = "failed"
	StateRejected State = "rejected"
)

// DefaultTTL is how long a status stays queryable after its last update.
const DefaultTTL = 24 * time.Hour

// Status is keyed by the assistant message id of the turn.
type Status struct {
	MessageID      string          `json:"message_id"`
	ConversationID string          `json:"conversation_id"`
	State          State           `json:"state"`
	Attempts       int             `json:"attempts"`
	Warnings       []graph.Warning `json:"warnings,omitempty"`
	Error          string          `json:"error,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Tracker stores statuses. Get returns an ErrStatusNotFound for unknown ids.
type Tracker interface {
	Set(ctx context.Context, s Status) error
	Get(ctx context.Context, messageID string) (Status, error)
}
