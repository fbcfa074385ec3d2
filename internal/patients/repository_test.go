package patients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/patient-admin/pkg/database"
	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/types"
)

func setupTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	log := logger.New("debug")
	repo := NewRepository(database.NewFromSQL(sqlDB, log), log)

	cleanup := func() {
		sqlDB.Close()
	}

	return repo, mock, cleanup
}

func patientRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "patient_id", "name", "email", "age", "gender",
		"blood_group", "risk_level", "approval_status", "created_by",
		"created_at", "updated_at",
	})
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	now := time.Now()
	rows := patientRows().AddRow(
		"pat-1", "P-0001", "Jane Smith", "jane@example.com", 34, "female",
		"O+", "low", "pending", nil, now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM patients\\s+WHERE id = \\$1").
		WithArgs("pat-1").
		WillReturnRows(rows)

	patient, err := repo.GetByID(context.Background(), "pat-1")
	require.NoError(t, err)
	assert.Equal(t, "pat-1", patient.ID)
	assert.Equal(t, "Jane Smith", patient.Name)
	require.NotNil(t, patient.BloodGroup)
	assert.Equal(t, types.BloodGroupOPos, *patient.BloodGroup)
	assert.False(t, patient.IsLinked())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM patients\\s+WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(patientRows())

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)

	var ce *types.CarelinkError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, types.ErrorTypeNotFound, ce.Type)
}

func TestRepository_ListPending(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	now := time.Now()
	rows := patientRows().
		AddRow("pat-2", nil, "Newer Patient", nil, 60, "male",
			nil, nil, "pending", nil, now, now).
		AddRow("pat-1", nil, "Older Patient", nil, 45, "female",
			nil, nil, "pending", nil, now.Add(-time.Hour), now.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM patients\\s+WHERE approval_status = \\$1\\s+ORDER BY created_at DESC").
		WithArgs(types.ApprovalPending).
		WillReturnRows(rows)

	pending, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "pat-2", pending[0].ID)
	assert.Equal(t, "pat-1", pending[1].ID)
}

func TestRepository_ListPending_Empty(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM patients").
		WithArgs(types.ApprovalPending).
		WillReturnRows(patientRows())

	pending, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRepository_Search_DefaultFiltersMatchEverything(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	now := time.Now()
	rows := patientRows().AddRow(
		"pat-1", "P-0001", "Jane Smith", nil, 34, "female",
		nil, nil, "approved", nil, now, now,
	)

	// No filter clauses, no args
	mock.ExpectQuery("SELECT (.+) FROM patients\\s+WHERE 1=1\\s+ORDER BY created_at DESC").
		WillReturnRows(rows)

	results, err := repo.Search(context.Background(), types.DefaultPatientFilters())
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRepository_Search_AppliesAllCriteria(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	now := time.Now()
	rows := patientRows().AddRow(
		"pat-1", "P-0001", "Jane Smith", "jane@example.com", 34, "female",
		"O+", "high", "approved", nil, now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM patients\\s+WHERE 1=1 AND \\(name ILIKE \\$1 OR patient_id ILIKE \\$1 OR email ILIKE \\$1\\) AND blood_group = \\$2 AND risk_level = \\$3").
		WithArgs("%smith%", types.BloodGroupOPos, types.RiskHigh).
		WillReturnRows(rows)

	results, err := repo.Search(context.Background(), types.PatientFilters{
		SearchQuery: "smith",
		BloodGroup:  types.BloodGroupOPos,
		RiskLevel:   types.RiskHigh,
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRepository_SetApprovalStatus(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectExec("UPDATE patients\\s+SET approval_status = \\$1, updated_at = \\$2\\s+WHERE id = \\$3 AND approval_status = \\$4").
		WithArgs(types.ApprovalApproved, sqlmock.AnyArg(), "pat-1", types.ApprovalPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetApprovalStatus(context.Background(), "pat-1", types.ApprovalApproved)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SetApprovalStatus_RejectsNonTerminal(t *testing.T) {
	repo, _, cleanup := setupTestRepository(t)
	defer cleanup()

	err := repo.SetApprovalStatus(context.Background(), "pat-1", types.ApprovalPending)
	require.Error(t, err)

	var ce *types.CarelinkError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)
}

func TestRepository_SetApprovalStatus_AlreadyDecided(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectExec("UPDATE patients").
		WithArgs(types.ApprovalRejected, sqlmock.AnyArg(), "pat-1", types.ApprovalPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// The follow-up lookup finds the row, so the miss means it was decided
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM patients\\s+WHERE id = \\$1").
		WithArgs("pat-1").
		WillReturnRows(patientRows().AddRow(
			"pat-1", nil, "Jane Smith", nil, 34, "female",
			nil, nil, "approved", nil, now, now,
		))

	err := repo.SetApprovalStatus(context.Background(), "pat-1", types.ApprovalRejected)
	require.Error(t, err)

	var ce *types.CarelinkError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, types.ErrCodeAlreadyDecided, ce.Code)
}

func TestRepository_SetApprovalStatus_NotFound(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectExec("UPDATE patients").
		WithArgs(types.ApprovalApproved, sqlmock.AnyArg(), "missing", types.ApprovalPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery("SELECT (.+) FROM patients\\s+WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(patientRows())

	err := repo.SetApprovalStatus(context.Background(), "missing", types.ApprovalApproved)
	require.Error(t, err)

	var ce *types.CarelinkError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, types.ErrorTypeNotFound, ce.Type)
}

func TestRepository_UpdateFields(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectExec("UPDATE patients SET name = \\$1, updated_at = \\$2 WHERE id = \\$3").
		WithArgs("New Name", sqlmock.AnyArg(), "pat-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateFields(context.Background(), "pat-1", map[string]interface{}{
		"name": "New Name",
	})
	assert.NoError(t, err)
}

func TestRepository_UpdateFields_RejectsUnknownColumn(t *testing.T) {
	repo, _, cleanup := setupTestRepository(t)
	defer cleanup()

	err := repo.UpdateFields(context.Background(), "pat-1", map[string]interface{}{
		"approval_status": "approved",
	})
	require.Error(t, err)

	var ce *types.CarelinkError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)
}

func TestRepository_Scan_RejectsCorruptRow(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	now := time.Now()
	rows := patientRows().AddRow(
		"pat-1", nil, "Jane Smith", nil, 34, "female",
		"C+", nil, "pending", nil, now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM patients\\s+WHERE id = \\$1").
		WithArgs("pat-1").
		WillReturnRows(rows)

	_, err := repo.GetByID(context.Background(), "pat-1")
	require.Error(t, err)

	var ce *types.CarelinkError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)
}
