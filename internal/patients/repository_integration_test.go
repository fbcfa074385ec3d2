//go:build integration
// +build integration

package patients

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/carelink/patient-admin/pkg/database"
	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/types"
)

func startPostgres(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "carelink_test",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=testpass dbname=carelink_test sslmode=disable",
		host, port.Port())

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.Eventually(t, func() bool {
		return sqlDB.Ping() == nil
	}, 30*time.Second, 500*time.Millisecond)

	db := database.NewFromSQL(sqlDB, logger.New("debug"))
	require.NoError(t, db.CreateSchema(ctx))
	return db
}

func insertPatient(t *testing.T, db *database.DB, name string, status types.ApprovalStatus, bloodGroup, riskLevel string) string {
	t.Helper()
	var id string
	err := db.QueryRow(`
		INSERT INTO patients (name, age, gender, blood_group, risk_level, approval_status)
		VALUES ($1, 42, 'female', NULLIF($2, ''), NULLIF($3, ''), $4)
		RETURNING id`, name, bloodGroup, riskLevel, status).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestIntegration_ApprovalLifecycle(t *testing.T) {
	db := startPostgres(t)
	repo := NewRepository(db, logger.New("debug"))
	ctx := context.Background()

	id := insertPatient(t, db, "Jane Smith", types.ApprovalPending, "O+", "low")

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)

	require.NoError(t, repo.SetApprovalStatus(ctx, id, types.ApprovalApproved))

	// Approved rows leave the pending list
	pending, err = repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// A decided row cannot be re-decided
	err = repo.SetApprovalStatus(ctx, id, types.ApprovalRejected)
	require.Error(t, err)

	patient, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.ApprovalApproved, patient.ApprovalStatus)
}

func TestIntegration_SearchFilters(t *testing.T) {
	db := startPostgres(t)
	repo := NewRepository(db, logger.New("debug"))
	ctx := context.Background()

	insertPatient(t, db, "Jane Smith", types.ApprovalApproved, "O+", "high")
	insertPatient(t, db, "John Smith", types.ApprovalApproved, "A-", "low")
	insertPatient(t, db, "Alice Jones", types.ApprovalApproved, "O+", "high")

	filters := types.DefaultPatientFilters()
	filters.SearchQuery = "smith"

	// Case-insensitive name match
	results, err := repo.Search(ctx, filters)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	filters.BloodGroup = types.BloodGroupOPos
	results, err = repo.Search(ctx, filters)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Jane Smith", results[0].Name)

	// Defaults match everything
	results, err = repo.Search(ctx, types.DefaultPatientFilters())
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestIntegration_UpdateFields(t *testing.T) {
	db := startPostgres(t)
	repo := NewRepository(db, logger.New("debug"))
	ctx := context.Background()

	id := insertPatient(t, db, "Jane Smith", types.ApprovalApproved, "", "")

	err := repo.UpdateFields(ctx, id, map[string]interface{}{
		"name":       "Jane Smith-Jones",
		"risk_level": "medium",
	})
	require.NoError(t, err)

	patient, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith-Jones", patient.Name)
	require.NotNil(t, patient.RiskLevel)
	assert.Equal(t, types.RiskMedium, *patient.RiskLevel)
}
