package sync

import (
	"context"
	"fmt"
	stdsync "sync"

	"github.com/carelink/patient-admin/pkg/interfaces"
	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/monitoring"
	"github.com/carelink/patient-admin/pkg/types"
)

// Service implements the offline sync engine. Writes captured while offline
// accumulate in a durable queue and are drained in order once connectivity
// returns and a sync is triggered.
type Service struct {
	queue    interfaces.SyncQueueRepository
	patients interfaces.PatientRepository
	notifier interfaces.Notifier
	logger   *logger.Logger
	metrics  *monitoring.MetricsCollector

	maxQueueSize int

	mu      stdsync.Mutex
	online  bool
	syncing bool
}

// NewService creates a new sync service. metrics may be nil.
func NewService(queue interfaces.SyncQueueRepository, patients interfaces.PatientRepository, notifier interfaces.Notifier, log *logger.Logger, metrics *monitoring.MetricsCollector, maxQueueSize int, startOnline bool) *Service {
	return &Service{
		queue:        queue,
		patients:     patients,
		notifier:     notifier,
		logger:       log,
		metrics:      metrics,
		maxQueueSize: maxQueueSize,
		online:       startOnline,
	}
}

// Status reports connectivity, drain progress and the pending count
func (s *Service) Status(ctx context.Context) (types.SyncStatus, error) {
	count, err := s.queue.Count(ctx)
	if err != nil {
		return types.SyncStatus{}, types.NewQueryError(types.ErrCodeQueryFailed,
			"failed to count pending writes", err)
	}

	s.mu.Lock()
	status := types.SyncStatus{
		IsOnline:         s.online,
		IsSyncing:        s.syncing,
		PendingSyncCount: count,
	}
	s.mu.Unlock()

	s.setQueueDepth(count)
	return status, nil
}

// SetOnline records a connectivity transition. Going offline does not touch
// the queue; going online does not drain it by itself.
func (s *Service) SetOnline(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	s.mu.Unlock()

	if changed {
		event := "connectivity_lost"
		if online {
			event = "connectivity_restored"
		}
		s.logger.SyncEvent(event, -1, nil)
	}
}

// QueueWrite stores a mutation for later replay
func (s *Service) QueueWrite(ctx context.Context, write *types.PendingWrite) error {
	if err := write.Validate(); err != nil {
		return err
	}

	if s.maxQueueSize > 0 {
		count, err := s.queue.Count(ctx)
		if err != nil {
			return types.NewQueryError(types.ErrCodeQueryFailed,
				"failed to count pending writes", err)
		}
		if count >= s.maxQueueSize {
			return types.NewConflictError(types.ErrCodeConflict,
				fmt.Sprintf("sync queue is full (%d writes)", count))
		}
	}

	if err := s.queue.Enqueue(ctx, write); err != nil {
		s.logger.WithError(err).Error("Failed to queue pending write")
		return types.NewMutationError(types.ErrCodeMutationFailed,
			"failed to queue pending write", err)
	}

	if count, err := s.queue.Count(ctx); err == nil {
		s.setQueueDepth(count)
		s.logger.SyncEvent("write_queued", count, map[string]interface{}{
			"resource":    write.Resource,
			"resource_id": write.ResourceID,
		})
	}

	return nil
}

// SyncWithServer drains the queue in order, stopping at the first failure so
// writes are never replayed out of sequence. It refuses to run while offline
// and refuses concurrent drains.
func (s *Service) SyncWithServer(ctx context.Context) error {
	if err := s.beginSync(); err != nil {
		return err
	}
	defer s.endSync()

	writes, err := s.queue.List(ctx)
	if err != nil {
		s.recordRun(false)
		return types.NewQueryError(types.ErrCodeQueryFailed,
			"failed to list pending writes", err)
	}

	if len(writes) == 0 {
		s.recordRun(true)
		return nil
	}

	s.logger.SyncEvent("drain_started", len(writes), nil)

	applied := 0
	for _, write := range writes {
		if err := s.apply(ctx, write); err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"write_id":    write.ID,
				"resource":    write.Resource,
				"resource_id": write.ResourceID,
			}).Error("Sync stopped at failed write")
			s.notifier.Error("Sync failed",
				fmt.Sprintf("%d of %d changes synced before a failure; the rest stay queued", applied, len(writes)))
			s.recordRun(false)
			s.refreshQueueDepth(ctx)
			return types.NewMutationError(types.ErrCodeMutationFailed,
				"sync stopped at a failed write", err)
		}

		if err := s.queue.Delete(ctx, write.ID); err != nil {
			// The write is applied but still queued; stop rather than risk
			// replaying it on the next drain alongside later writes.
			s.logger.WithError(err).WithField("write_id", write.ID).
				Error("Failed to remove applied write from queue")
			s.recordRun(false)
			s.refreshQueueDepth(ctx)
			return types.NewMutationError(types.ErrCodeMutationFailed,
				"failed to remove applied write from queue", err)
		}
		applied++
	}

	s.logger.SyncEvent("drain_completed", 0, map[string]interface{}{
		"applied": applied,
	})
	s.notifier.Success("Sync complete",
		fmt.Sprintf("%d offline changes synced", applied))
	s.recordRun(true)
	s.setQueueDepth(0)
	return nil
}

// apply replays one queued write against its resource
func (s *Service) apply(ctx context.Context, write *types.PendingWrite) error {
	fields, err := write.Fields()
	if err != nil {
		return types.NewValidationError(types.ErrCodeInvalidInput,
			"queued payload is not a field map", map[string]interface{}{
				"write_id": write.ID,
			})
	}

	switch write.Resource {
	case "patients":
		return s.patients.UpdateFields(ctx, write.ResourceID, fields)
	default:
		return types.NewValidationError(types.ErrCodeInvalidInput,
			"unknown sync resource: "+write.Resource, nil)
	}
}

// beginSync checks connectivity and claims the drain slot
func (s *Service) beginSync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.online {
		return types.NewOfflineError(types.ErrCodeOffline,
			"cannot sync while offline")
	}
	if s.syncing {
		return types.NewConflictError(types.ErrCodeSyncInProgress,
			"a sync is already in progress")
	}
	s.syncing = true
	return nil
}

func (s *Service) endSync() {
	s.mu.Lock()
	s.syncing = false
	s.mu.Unlock()
}

func (s *Service) recordRun(success bool) {
	if s.metrics != nil {
		s.metrics.RecordSyncRun(success)
	}
}

func (s *Service) setQueueDepth(depth int) {
	if s.metrics != nil {
		s.metrics.SetSyncQueueDepth(depth)
	}
}

func (s *Service) refreshQueueDepth(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if count, err := s.queue.Count(ctx); err == nil {
		s.setQueueDepth(count)
	}
}
