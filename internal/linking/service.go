package linking

import (
	"context"
	"fmt"
	"sync"

	"github.com/carelink/patient-admin/pkg/interfaces"
	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/monitoring"
	"github.com/carelink/patient-admin/pkg/types"
)

// Service implements patient/account linking. A patient record is linked by
// setting its owning user from a profile found in the user directory.
type Service struct {
	repo     interfaces.ProfileRepository
	notifier interfaces.Notifier
	logger   *logger.Logger
	metrics  *monitoring.MetricsCollector

	// Lookup and link are separately guarded: a slow directory search must
	// not block an unlink, and vice versa.
	mu        sync.Mutex
	searching bool
	linking   bool
}

// NewService creates a new link service. metrics may be nil.
func NewService(repo interfaces.ProfileRepository, notifier interfaces.Notifier, log *logger.Logger, metrics *monitoring.MetricsCollector) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   log,
		metrics:  metrics,
	}
}

// LookupProfile searches the user directory by email. A nil profile with a
// nil error means no matching user has registered yet; the caller should
// prompt the user to create an account first.
func (s *Service) LookupProfile(ctx context.Context, email string) (*types.UserProfile, error) {
	if email == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "email is required", nil)
	}

	if err := s.beginSearch(); err != nil {
		return nil, err
	}
	defer s.endSearch()

	profile, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		s.logger.WithError(err).Error("Profile lookup failed")
		s.notifier.Error("Failed to search for user", err.Error())
		return nil, types.NewQueryError(types.ErrCodeQueryFailed, "profile lookup failed", err)
	}

	if profile == nil {
		s.notifier.Error("No user found",
			"No account registered with this email. Ask the user to sign up first.")
		return nil, nil
	}

	return profile, nil
}

// Link associates a patient record with a registered user account
func (s *Service) Link(ctx context.Context, patientID, patientName string, profile *types.UserProfile) (*types.LinkResult, error) {
	if profile == nil {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput,
			"a profile must be looked up before linking", nil)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	if err := s.beginLink(); err != nil {
		return nil, err
	}
	defer s.endLink()

	if err := s.repo.LinkPatient(ctx, patientID, profile.UserID, profile.Email); err != nil {
		s.logger.WithPatientID(patientID).WithError(err).Error("Failed to link patient")
		s.notifier.Error("Failed to link patient", err.Error())
		s.recordLink("link", false)
		return nil, err
	}

	s.recordLink("link", true)
	s.logger.Audit(profile.UserID, "link", "patients/"+patientID, true, map[string]interface{}{
		"email": profile.Email,
	})
	s.notifier.Success("Patient linked",
		fmt.Sprintf("%s is now linked to %s", patientName, profile.Email))

	userID := profile.UserID
	email := profile.Email
	return &types.LinkResult{
		PatientID:   patientID,
		PatientName: patientName,
		UserID:      &userID,
		Email:       &email,
	}, nil
}

// Unlink removes the patient's account association. It needs no prior
// lookup; the link is cleared whoever owns it.
func (s *Service) Unlink(ctx context.Context, patientID, patientName string) (*types.LinkResult, error) {
	if err := s.beginLink(); err != nil {
		return nil, err
	}
	defer s.endLink()

	if err := s.repo.UnlinkPatient(ctx, patientID); err != nil {
		s.logger.WithPatientID(patientID).WithError(err).Error("Failed to unlink patient")
		s.notifier.Error("Failed to unlink patient", err.Error())
		s.recordLink("unlink", false)
		return nil, err
	}

	s.recordLink("unlink", true)
	s.notifier.Success("Patient unlinked",
		fmt.Sprintf("%s is no longer linked to a user account", patientName))

	return &types.LinkResult{
		PatientID:   patientID,
		PatientName: patientName,
	}, nil
}

func (s *Service) beginSearch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searching {
		return types.NewConflictError(types.ErrCodeConflict, "a profile lookup is already in progress")
	}
	s.searching = true
	return nil
}

func (s *Service) endSearch() {
	s.mu.Lock()
	s.searching = false
	s.mu.Unlock()
}

func (s *Service) beginLink() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linking {
		return types.NewConflictError(types.ErrCodeConflict, "a link operation is already in progress")
	}
	s.linking = true
	return nil
}

func (s *Service) endLink() {
	s.mu.Lock()
	s.linking = false
	s.mu.Unlock()
}

func (s *Service) recordLink(operation string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordLinkOperation(operation, success)
	}
}
