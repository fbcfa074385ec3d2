package interfaces

import (
	"context"

	"github.com/carelink/patient-admin/pkg/types"
)

// SyncQueueRepository defines the interface for the offline write queue
type SyncQueueRepository interface {
	Enqueue(ctx context.Context, write *types.PendingWrite) error
	List(ctx context.Context) ([]*types.PendingWrite, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// SyncService defines the interface for the offline sync engine.
// Consumers of Status treat the returned value as externally owned state.
type SyncService interface {
	// Status reports connectivity, drain progress and the pending count
	Status(ctx context.Context) (types.SyncStatus, error)

	// SetOnline records a connectivity transition
	SetOnline(online bool)

	// QueueWrite stores a mutation captured while offline
	QueueWrite(ctx context.Context, write *types.PendingWrite) error

	// SyncWithServer drains the queue in order. It fails when offline and
	// refuses concurrent drains.
	SyncWithServer(ctx context.Context) error
}
