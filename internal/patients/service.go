package patients

import (
	"context"
	"sync"

	"github.com/carelink/patient-admin/pkg/interfaces"
	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/monitoring"
	"github.com/carelink/patient-admin/pkg/types"
)

// Service implements the pending-registrations approval workflow
type Service struct {
	repo     interfaces.PatientRepository
	notifier interfaces.Notifier
	logger   *logger.Logger
	metrics  *monitoring.MetricsCollector

	// A single decision slot per service instance. One registration is
	// decided at a time; a second concurrent decision is refused rather
	// than queued.
	mu           sync.Mutex
	processingID string
}

// NewService creates a new approval service. metrics may be nil.
func NewService(repo interfaces.PatientRepository, notifier interfaces.Notifier, log *logger.Logger, metrics *monitoring.MetricsCollector) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   log,
		metrics:  metrics,
	}
}

// PendingApprovals returns the patients awaiting a decision, newest first.
// An empty slice is a valid result: there is simply no work to show.
func (s *Service) PendingApprovals(ctx context.Context) ([]*types.Patient, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch pending approvals")
		s.notifier.Error("Failed to load pending approvals", err.Error())
		return nil, types.NewQueryError(types.ErrCodeQueryFailed,
			"failed to load pending approvals", err)
	}
	return pending, nil
}

// Approve decides a pending registration and returns the refetched pending
// list, so the caller's view is always re-derived from the store rather than
// patched locally.
func (s *Service) Approve(ctx context.Context, patientID, actorID string) ([]*types.Patient, error) {
	return s.decide(ctx, patientID, actorID, types.ApprovalApproved)
}

// Reject decides a pending registration and returns the refetched pending list
func (s *Service) Reject(ctx context.Context, patientID, actorID string) ([]*types.Patient, error) {
	return s.decide(ctx, patientID, actorID, types.ApprovalRejected)
}

// SearchPatients applies filter criteria against the patient directory
func (s *Service) SearchPatients(ctx context.Context, filters types.PatientFilters) ([]*types.Patient, error) {
	results, err := s.repo.Search(ctx, filters)
	if err != nil {
		s.logger.WithError(err).Error("Patient search failed")
		s.notifier.Error("Patient search failed", err.Error())
		return nil, types.NewQueryError(types.ErrCodeQueryFailed, "patient search failed", err)
	}
	return results, nil
}

// decide applies one terminal approval transition
func (s *Service) decide(ctx context.Context, patientID, actorID string, status types.ApprovalStatus) ([]*types.Patient, error) {
	if err := s.acquire(patientID); err != nil {
		return nil, err
	}
	// The slot is released unconditionally, whatever the outcome
	defer s.release()

	decision := "approve"
	if status == types.ApprovalRejected {
		decision = "reject"
	}

	if err := s.repo.SetApprovalStatus(ctx, patientID, status); err != nil {
		s.logger.WithPatientID(patientID).WithError(err).Error("Approval decision failed")
		s.notifier.Error("Failed to update patient status", err.Error())
		s.recordDecision(decision, false)
		s.logger.Audit(actorID, decision, "patients/"+patientID, false, nil)
		return nil, err
	}

	s.recordDecision(decision, true)
	s.logger.Audit(actorID, decision, "patients/"+patientID, true, map[string]interface{}{
		"status": string(status),
	})

	// Refetch the whole pending list rather than splicing the decided row
	// out locally; the displayed set always matches the store.
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to refetch pending approvals after decision")
		s.notifier.Error("Failed to refresh pending approvals", err.Error())
		return nil, types.NewQueryError(types.ErrCodeQueryFailed,
			"failed to refresh pending approvals", err)
	}

	return pending, nil
}

// acquire claims the instance's decision slot
func (s *Service) acquire(patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processingID != "" {
		return types.NewConflictError(types.ErrCodeDecisionInFlight,
			"Another registration decision is already in progress")
	}
	s.processingID = patientID
	return nil
}

// release frees the decision slot
func (s *Service) release() {
	s.mu.Lock()
	s.processingID = ""
	s.mu.Unlock()
}

func (s *Service) recordDecision(decision string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordApprovalDecision(decision, success)
	}
}
