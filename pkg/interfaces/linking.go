package interfaces

import (
	"context"

	"github.com/carelink/patient-admin/pkg/types"
)

// ProfileRepository defines the interface for the user profile directory
type ProfileRepository interface {
	// FindByEmail performs a case-insensitive pattern match against the
	// directory. A nil profile with a nil error means no user was found,
	// which is a valid outcome, not a failure.
	FindByEmail(ctx context.Context, email string) (*types.UserProfile, error)

	// LinkPatient sets the patient's created_by and email from one profile
	// in a single update
	LinkPatient(ctx context.Context, patientID, userID, email string) error

	// UnlinkPatient clears created_by only, leaving email untouched
	UnlinkPatient(ctx context.Context, patientID string) error
}

// LinkService defines the interface for patient/account linking
type LinkService interface {
	// LookupProfile searches the directory by email; (nil, nil) means no
	// matching user has registered yet
	LookupProfile(ctx context.Context, email string) (*types.UserProfile, error)

	// Link associates a patient record with a registered user account
	Link(ctx context.Context, patientID, patientName string, profile *types.UserProfile) (*types.LinkResult, error)

	// Unlink removes the association, independent of any prior lookup
	Unlink(ctx context.Context, patientID, patientName string) (*types.LinkResult, error)
}
