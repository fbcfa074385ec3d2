package linking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/carelink/patient-admin/pkg/database"
	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/types"
)

// Repository implements profile directory lookups and patient link updates
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new linking repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// FindByEmail looks up a registered user by email. The match is a
// case-insensitive pattern match: the caller's input is passed through
// verbatim, so wildcards in it are honored. A miss returns (nil, nil).
func (r *Repository) FindByEmail(ctx context.Context, email string) (*types.UserProfile, error) {
	query := `
		SELECT user_id, full_name, email
		FROM profiles
		WHERE email ILIKE $1`

	var profile types.UserProfile
	var fullName sql.NullString

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&profile.UserID,
		&fullName,
		&profile.Email,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			// No registered user with this email is a valid outcome
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up profile by email: %w", err)
	}

	profile.FullName = fullName.String

	if err := profile.Validate(); err != nil {
		return nil, err
	}

	return &profile, nil
}

// LinkPatient associates a patient with a user account. The owning user and
// the contact email are set together in one statement so the record never
// holds one without the other.
func (r *Repository) LinkPatient(ctx context.Context, patientID, userID, email string) error {
	query := `
		UPDATE patients
		SET created_by = $1, email = $2, updated_at = $3
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, userID, email, time.Now(), patientID)
	if err != nil {
		return fmt.Errorf("failed to link patient: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError("PATIENT_NOT_FOUND", "Patient not found")
	}

	r.logger.DatabaseOperation("update", "patients", rowsAffected, true)
	return nil
}

// UnlinkPatient clears the patient's owning user. The contact email stays on
// the record.
func (r *Repository) UnlinkPatient(ctx context.Context, patientID string) error {
	query := `
		UPDATE patients
		SET created_by = NULL, updated_at = $1
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, time.Now(), patientID)
	if err != nil {
		return fmt.Errorf("failed to unlink patient: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError("PATIENT_NOT_FOUND", "Patient not found")
	}

	r.logger.DatabaseOperation("update", "patients", rowsAffected, true)
	return nil
}
