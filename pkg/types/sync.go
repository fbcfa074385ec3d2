package types

import (
	"encoding/json"
	"time"
)

// SyncStatus represents the connectivity and queue state exposed to clients
type SyncStatus struct {
	IsOnline         bool `json:"is_online"`
	IsSyncing        bool `json:"is_syncing"`
	PendingSyncCount int  `json:"pending_sync_count"`
}

// WriteOperation represents the kind of queued write
type WriteOperation string

const (
	WriteOpUpdate WriteOperation = "update"
)

// IsValid reports whether the operation is a known value
func (o WriteOperation) IsValid() bool {
	return o == WriteOpUpdate
}

// PendingWrite represents a mutation captured while offline, queued until the
// next successful sync
type PendingWrite struct {
	ID         string          `json:"id" db:"id"`
	Resource   string          `json:"resource" db:"resource"`
	ResourceID string          `json:"resource_id" db:"resource_id"`
	Operation  WriteOperation  `json:"operation" db:"operation"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	QueuedBy   string          `json:"queued_by" db:"queued_by"`
	QueuedAt   time.Time       `json:"queued_at" db:"queued_at"`
}

// Validate checks a pending write before it enters the queue
func (w *PendingWrite) Validate() error {
	if w.Resource == "" {
		return NewValidationError(ErrCodeInvalidInput, "resource is required", nil)
	}
	if w.ResourceID == "" {
		return NewValidationError(ErrCodeInvalidInput, "resource_id is required", nil)
	}
	if !w.Operation.IsValid() {
		return NewValidationError(ErrCodeInvalidInput, "unknown write operation: "+string(w.Operation), nil)
	}
	if len(w.Payload) == 0 {
		return NewValidationError(ErrCodeInvalidInput, "payload is required", nil)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(w.Payload, &fields); err != nil {
		return NewValidationError(ErrCodeInvalidInput, "payload must be a JSON field map", map[string]interface{}{
			"resource_id": w.ResourceID,
		})
	}
	if len(fields) == 0 {
		return NewValidationError(ErrCodeInvalidInput, "payload contains no fields", nil)
	}
	return nil
}

// Fields decodes the payload into a field map
func (w *PendingWrite) Fields() (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(w.Payload, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
