package interfaces

import (
	"context"

	"github.com/carelink/patient-admin/pkg/types"
)

// PatientRepository defines the interface for patient data persistence
type PatientRepository interface {
	// GetByID retrieves a single patient
	GetByID(ctx context.Context, id string) (*types.Patient, error)

	// ListPending retrieves patients awaiting approval, newest first
	ListPending(ctx context.Context) ([]*types.Patient, error)

	// Search retrieves patients matching the filter criteria
	Search(ctx context.Context, filters types.PatientFilters) ([]*types.Patient, error)

	// SetApprovalStatus moves a pending patient to a terminal status.
	// Rows already decided are not touched.
	SetApprovalStatus(ctx context.Context, id string, status types.ApprovalStatus) error

	// UpdateFields applies a field-scoped update to a single patient row
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
}

// ApprovalService defines the interface for the pending-registrations workflow
type ApprovalService interface {
	// PendingApprovals returns the current pending list; an empty slice is a
	// valid, non-error result
	PendingApprovals(ctx context.Context) ([]*types.Patient, error)

	// Approve decides a pending registration and returns the refetched
	// pending list
	Approve(ctx context.Context, patientID, actorID string) ([]*types.Patient, error)

	// Reject decides a pending registration and returns the refetched
	// pending list
	Reject(ctx context.Context, patientID, actorID string) ([]*types.Patient, error)

	// SearchPatients applies filter criteria against the patient directory
	SearchPatients(ctx context.Context, filters types.PatientFilters) ([]*types.Patient, error)
}
