package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/patient-admin/pkg/database"
	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/types"
)

// Repository persists the offline write queue
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new sync queue repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// Enqueue stores a pending write at the tail of the queue
func (r *Repository) Enqueue(ctx context.Context, write *types.PendingWrite) error {
	if err := write.Validate(); err != nil {
		return err
	}

	if write.ID == "" {
		write.ID = uuid.New().String()
	}
	if write.QueuedAt.IsZero() {
		write.QueuedAt = time.Now()
	}

	query := `
		INSERT INTO sync_queue (id, resource, resource_id, operation, payload, queued_by, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		write.ID,
		write.Resource,
		write.ResourceID,
		write.Operation,
		[]byte(write.Payload),
		write.QueuedBy,
		write.QueuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue pending write: %w", err)
	}

	r.logger.DatabaseOperation("insert", "sync_queue", 1, true)
	return nil
}

// List returns all pending writes in queue order, oldest first
func (r *Repository) List(ctx context.Context) ([]*types.PendingWrite, error) {
	query := `
		SELECT id, resource, resource_id, operation, payload, queued_by, queued_at
		FROM sync_queue
		ORDER BY queued_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending writes: %w", err)
	}
	defer rows.Close()

	var writes []*types.PendingWrite
	for rows.Next() {
		var write types.PendingWrite
		var payload []byte
		err := rows.Scan(
			&write.ID,
			&write.Resource,
			&write.ResourceID,
			&write.Operation,
			&payload,
			&write.QueuedBy,
			&write.QueuedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending write: %w", err)
		}
		write.Payload = payload
		writes = append(writes, &write)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending writes: %w", err)
	}

	return writes, nil
}

// Delete removes an applied write from the queue
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending write: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Pending write not found")
	}

	r.logger.DatabaseOperation("delete", "sync_queue", rowsAffected, true)
	return nil
}

// Count returns the number of pending writes
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending writes: %w", err)
	}
	return count, nil
}
