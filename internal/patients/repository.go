package patients

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/carelink/patient-admin/pkg/database"
	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/types"
)

const patientColumns = `id, patient_id, name, email, age, gender, blood_group, risk_level, approval_status, created_by, created_at, updated_at`

// Repository implements patient data persistence
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new patient repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// GetByID retrieves a patient by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*types.Patient, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM patients
		WHERE id = $1`, patientColumns)

	patient, err := r.scanPatient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError("PATIENT_NOT_FOUND", "Patient not found")
		}
		return nil, fmt.Errorf("failed to get patient by ID: %w", err)
	}

	return patient, nil
}

// ListPending retrieves all patients awaiting approval, newest first
func (r *Repository) ListPending(ctx context.Context) ([]*types.Patient, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM patients
		WHERE approval_status = $1
		ORDER BY created_at DESC`, patientColumns)

	rows, err := r.db.QueryContext(ctx, query, types.ApprovalPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending patients: %w", err)
	}
	defer rows.Close()

	return r.collectPatients(rows)
}

// Search retrieves patients matching the filter criteria. The free-text
// query matches name, display code and email; the select fields narrow by
// exact column value.
func (r *Repository) Search(ctx context.Context, filters types.PatientFilters) ([]*types.Patient, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM patients
		WHERE 1=1`, patientColumns)

	args := []interface{}{}
	argIndex := 1

	if filters.SearchQuery != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR patient_id ILIKE $%d OR email ILIKE $%d)`,
			argIndex, argIndex, argIndex)
		args = append(args, "%"+filters.SearchQuery+"%")
		argIndex++
	}

	if filters.BloodGroup != "" && filters.BloodGroup != types.BloodGroupAll {
		query += fmt.Sprintf(" AND blood_group = $%d", argIndex)
		args = append(args, filters.BloodGroup)
		argIndex++
	}

	if filters.RiskLevel != "" && filters.RiskLevel != types.RiskLevelAll {
		query += fmt.Sprintf(" AND risk_level = $%d", argIndex)
		args = append(args, filters.RiskLevel)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	defer rows.Close()

	return r.collectPatients(rows)
}

// SetApprovalStatus moves a pending patient to a terminal status. The
// conditional WHERE clause enforces that decided rows are never re-decided.
func (r *Repository) SetApprovalStatus(ctx context.Context, id string, status types.ApprovalStatus) error {
	if !status.IsTerminal() {
		return types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("approval status %q is not a decision", status), nil)
	}

	query := `
		UPDATE patients
		SET approval_status = $1, updated_at = $2
		WHERE id = $3 AND approval_status = $4`

	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id, types.ApprovalPending)
	if err != nil {
		return fmt.Errorf("failed to update approval status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Either the patient does not exist or it has already been decided
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return types.NewConflictError(types.ErrCodeAlreadyDecided,
			"Patient registration has already been decided")
	}

	r.logger.DatabaseOperation("update", "patients", rowsAffected, true)
	return nil
}

// UpdateFields applies a field-scoped update to a single patient row
func (r *Repository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "no fields to update", nil)
	}

	setParts := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	argIndex := 1

	for field, value := range fields {
		switch field {
		case "patient_id", "name", "email", "age", "gender", "blood_group", "risk_level":
			setParts = append(setParts, fmt.Sprintf("%s = $%d", field, argIndex))
			args = append(args, value)
		default:
			return types.NewValidationError(types.ErrCodeInvalidInput,
				fmt.Sprintf("invalid field for update: %s", field), nil)
		}
		argIndex++
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	args = append(args, id)

	query := fmt.Sprintf("UPDATE patients SET %s WHERE id = $%d",
		strings.Join(setParts, ", "), argIndex)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
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

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanPatient reads one row into a validated patient record
func (r *Repository) scanPatient(row rowScanner) (*types.Patient, error) {
	var patient types.Patient
	var patientID, email, createdBy, bloodGroup, riskLevel sql.NullString

	err := row.Scan(
		&patient.ID,
		&patientID,
		&patient.Name,
		&email,
		&patient.Age,
		&patient.Gender,
		&bloodGroup,
		&riskLevel,
		&patient.ApprovalStatus,
		&createdBy,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if patientID.Valid {
		patient.PatientID = &patientID.String
	}
	if email.Valid {
		patient.Email = &email.String
	}
	if createdBy.Valid {
		patient.CreatedBy = &createdBy.String
	}
	if bloodGroup.Valid {
		g := types.BloodGroup(bloodGroup.String)
		patient.BloodGroup = &g
	}
	if riskLevel.Valid {
		l := types.RiskLevel(riskLevel.String)
		patient.RiskLevel = &l
	}

	// Rows are validated at the store boundary rather than trusted downstream
	if err := patient.Validate(); err != nil {
		return nil, err
	}

	return &patient, nil
}

// collectPatients drains a result set into validated patient records
func (r *Repository) collectPatients(rows *sql.Rows) ([]*types.Patient, error) {
	var patients []*types.Patient
	for rows.Next() {
		patient, err := r.scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient row: %w", err)
		}
		patients = append(patients, patient)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patient rows: %w", err)
	}

	return patients, nil
}
