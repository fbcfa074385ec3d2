package sync

import (
	"context"
	"encoding/json"
	stdsync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/types"
)

// MockSyncQueueRepository is a mock implementation of SyncQueueRepository
type MockSyncQueueRepository struct {
	mock.Mock
}

func (m *MockSyncQueueRepository) Enqueue(ctx context.Context, write *types.PendingWrite) error {
	args := m.Called(ctx, write)
	return args.Error(0)
}

func (m *MockSyncQueueRepository) List(ctx context.Context) ([]*types.PendingWrite, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.PendingWrite), args.Error(1)
}

func (m *MockSyncQueueRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSyncQueueRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockPatientWriter mocks the patient repository used to replay writes
type MockPatientWriter struct {
	mock.Mock
}

func (m *MockPatientWriter) GetByID(ctx context.Context, id string) (*types.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Patient), args.Error(1)
}

func (m *MockPatientWriter) ListPending(ctx context.Context) ([]*types.Patient, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Patient), args.Error(1)
}

func (m *MockPatientWriter) Search(ctx context.Context, filters types.PatientFilters) ([]*types.Patient, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Patient), args.Error(1)
}

func (m *MockPatientWriter) SetApprovalStatus(ctx context.Context, id string, status types.ApprovalStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockPatientWriter) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

// fakeNotifier records notifications for assertions
type fakeNotifier struct {
	mu        stdsync.Mutex
	successes []string
	errors    []string
}

func (f *fakeNotifier) Success(message, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes = append(f.successes, message+": "+description)
}

func (f *fakeNotifier) Error(message, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, message+": "+description)
}

func setupTestService(startOnline bool) (*Service, *MockSyncQueueRepository, *MockPatientWriter, *fakeNotifier) {
	queue := &MockSyncQueueRepository{}
	patients := &MockPatientWriter{}
	notifier := &fakeNotifier{}
	service := NewService(queue, patients, notifier, logger.New("debug"), nil, 100, startOnline)
	return service, queue, patients, notifier
}

func pendingWrite(id, resourceID string, fields map[string]interface{}) *types.PendingWrite {
	payload, _ := json.Marshal(fields)
	return &types.PendingWrite{
		ID:         id,
		Resource:   "patients",
		ResourceID: resourceID,
		Operation:  types.WriteOpUpdate,
		Payload:    payload,
		QueuedBy:   "admin-1",
	}
}

func TestStatus(t *testing.T) {
	service, queue, _, _ := setupTestService(true)

	queue.On("Count", mock.Anything).Return(3, nil)

	status, err := service.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsOnline)
	assert.False(t, status.IsSyncing)
	assert.Equal(t, 3, status.PendingSyncCount)
}

func TestSetOnline(t *testing.T) {
	service, queue, _, _ := setupTestService(false)
	queue.On("Count", mock.Anything).Return(0, nil)

	status, err := service.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.IsOnline)

	service.SetOnline(true)

	status, err = service.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsOnline)
}

func TestQueueWrite(t *testing.T) {
	service, queue, _, _ := setupTestService(false)

	write := pendingWrite("", "pat-1", map[string]interface{}{"name": "New Name"})
	queue.On("Count", mock.Anything).Return(0, nil)
	queue.On("Enqueue", mock.Anything, write).Return(nil)

	err := service.QueueWrite(context.Background(), write)
	assert.NoError(t, err)
	queue.AssertExpectations(t)
}

func TestQueueWrite_RejectsInvalid(t *testing.T) {
	service, queue, _, _ := setupTestService(false)

	err := service.QueueWrite(context.Background(), &types.PendingWrite{
		Resource: "patients",
		// Missing resource_id, operation and payload
	})
	require.Error(t, err)
	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestQueueWrite_RefusesWhenFull(t *testing.T) {
	service, queue, _, _ := setupTestService(false)

	queue.On("Count", mock.Anything).Return(100, nil)

	err := service.QueueWrite(context.Background(), pendingWrite("", "pat-1", map[string]interface{}{"age": 41}))
	require.Error(t, err)

	var ce *types.CarelinkError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrorTypeConflict, ce.Type)
	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestSyncWithServer_DrainsInOrder(t *testing.T) {
	service, queue, patients, notifier := setupTestService(true)

	first := pendingWrite("w-1", "pat-1", map[string]interface{}{"name": "First"})
	second := pendingWrite("w-2", "pat-2", map[string]interface{}{"age": float64(50)})

	queue.On("List", mock.Anything).Return([]*types.PendingWrite{first, second}, nil)

	var order []string
	patients.On("UpdateFields", mock.Anything, "pat-1", map[string]interface{}{"name": "First"}).
		Run(func(mock.Arguments) { order = append(order, "pat-1") }).Return(nil)
	patients.On("UpdateFields", mock.Anything, "pat-2", map[string]interface{}{"age": float64(50)}).
		Run(func(mock.Arguments) { order = append(order, "pat-2") }).Return(nil)
	queue.On("Delete", mock.Anything, "w-1").Return(nil)
	queue.On("Delete", mock.Anything, "w-2").Return(nil)

	err := service.SyncWithServer(context.Background())
	require.NoError(t, err)

	// Oldest first
	assert.Equal(t, []string{"pat-1", "pat-2"}, order)
	require.Len(t, notifier.successes, 1)
	assert.Contains(t, notifier.successes[0], "2 offline changes synced")
	queue.AssertExpectations(t)
}

func TestSyncWithServer_StopsAtFirstFailure(t *testing.T) {
	service, queue, patients, notifier := setupTestService(true)

	first := pendingWrite("w-1", "pat-1", map[string]interface{}{"name": "First"})
	second := pendingWrite("w-2", "pat-2", map[string]interface{}{"name": "Second"})
	third := pendingWrite("w-3", "pat-3", map[string]interface{}{"name": "Third"})

	queue.On("List", mock.Anything).Return([]*types.PendingWrite{first, second, third}, nil)
	queue.On("Count", mock.Anything).Return(2, nil)

	patients.On("UpdateFields", mock.Anything, "pat-1", mock.Anything).Return(nil)
	patients.On("UpdateFields", mock.Anything, "pat-2", mock.Anything).Return(assert.AnError)
	queue.On("Delete", mock.Anything, "w-1").Return(nil)

	err := service.SyncWithServer(context.Background())
	require.Error(t, err)

	// The failed write and everything after it stay queued
	patients.AssertNotCalled(t, "UpdateFields", mock.Anything, "pat-3", mock.Anything)
	queue.AssertNotCalled(t, "Delete", mock.Anything, "w-2")
	queue.AssertNotCalled(t, "Delete", mock.Anything, "w-3")
	require.Len(t, notifier.errors, 1)
	assert.Contains(t, notifier.errors[0], "1 of 3 changes synced")
}

func TestSyncWithServer_RefusesOffline(t *testing.T) {
	service, queue, _, _ := setupTestService(false)

	err := service.SyncWithServer(context.Background())
	require.Error(t, err)

	var ce *types.CarelinkError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrCodeOffline, ce.Code)
	queue.AssertNotCalled(t, "List", mock.Anything)
}

func TestSyncWithServer_RefusesConcurrentDrain(t *testing.T) {
	service, queue, patients, _ := setupTestService(true)

	release := make(chan struct{})
	started := make(chan struct{})

	write := pendingWrite("w-1", "pat-1", map[string]interface{}{"name": "First"})
	queue.On("List", mock.Anything).Return([]*types.PendingWrite{write}, nil)
	patients.On("UpdateFields", mock.Anything, "pat-1", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).Return(nil)
	queue.On("Delete", mock.Anything, "w-1").Return(nil)

	done := make(chan error, 1)
	go func() {
		done <- service.SyncWithServer(context.Background())
	}()

	<-started

	err := service.SyncWithServer(context.Background())
	require.Error(t, err)

	var ce *types.CarelinkError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrCodeSyncInProgress, ce.Code)

	close(release)
	require.NoError(t, <-done)
}

func TestSyncWithServer_EmptyQueueIsANoOp(t *testing.T) {
	service, queue, patients, notifier := setupTestService(true)

	queue.On("List", mock.Anything).Return([]*types.PendingWrite{}, nil)

	err := service.SyncWithServer(context.Background())
	assert.NoError(t, err)
	patients.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, notifier.successes)
}

func TestSyncWithServer_UnknownResourceFails(t *testing.T) {
	service, queue, _, _ := setupTestService(true)

	write := pendingWrite("w-1", "res-1", map[string]interface{}{"field": "value"})
	write.Resource = "appointments"
	queue.On("List", mock.Anything).Return([]*types.PendingWrite{write}, nil)
	queue.On("Count", mock.Anything).Return(1, nil)

	err := service.SyncWithServer(context.Background())
	require.Error(t, err)
	queue.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
