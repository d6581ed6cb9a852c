package outbox

import (
	"encoding/json"
	"time"
)

// IntentType is the kind of mutation a queued write intent describes.
type IntentType string

const (
	IntentCreate IntentType = "create"
	IntentUpdate IntentType = "update"
	IntentDelete IntentType = "delete"
)

func (t IntentType) IsValid() bool {
	switch t {
	case IntentCreate, IntentUpdate, IntentDelete:
		return true
	default:
		return false
	}
}

// WriteIntent is a mutation performed while offline, queued for later replay
// against the remote API. ID is assigned by the store on enqueue. Intents are
// replayed oldest-first; the replay loop itself lives outside this library,
// driven through ListPending, RemoveFromQueue and BumpRetry.
type WriteIntent struct {
	ID         int64           `json:"id" db:"id"`
	Type       IntentType      `json:"type" db:"type"`
	EntityType string          `json:"entityType" db:"entity_type"`
	EntityID   string          `json:"entityId" db:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty" db:"payload"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	RetryCount int             `json:"retryCount" db:"retry_count"`
	LastError  *string         `json:"lastError,omitempty" db:"last_error"`
}
