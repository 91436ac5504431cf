package inspection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConditionService(env *testEnv, cfg ConditionServiceConfig) *ConditionService {
	svc := NewConditionService(env.sessions, env.products, cfg,
		WithConditionMetrics(env.metrics),
		WithEventPublisher(env.publisher),
	)
	svc.now = func() time.Time { return time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC) }
	return svc
}

func validForm() ConditionUpdateRequest {
	return ConditionUpdateRequest{
		Condition:       "Poor",
		Status:          "Repair Required",
		MaintenanceType: "Corrective Maintenance",
		Inspector:       "Priya",
		InspectionDate:  "2024-03-04",
		Notes:           "Detection rod bent",
		Issues:          []string{"Mechanical Failure", "Corrosion", "Mechanical Failure"},
		NextMaintenance: "2024-04-01",
		Priority:        "High",
	}
}

func waitTask(t *testing.T, task *SubmissionTask) (*ProductResponse, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return task.Wait(ctx)
}

func TestConditionService_SubmitPersists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.sessions.Scan(ctx, "sid-1", "PROD001", ScanSourceManual)
	require.NoError(t, err)

	svc := newConditionService(env, ConditionServiceConfig{PersistUpdates: true, DefaultInspector: "Field Inspector"})
	task, err := svc.Submit(ctx, "sid-1", "PROD001", validForm())
	require.NoError(t, err)

	updated, err := waitTask(t, task)
	require.NoError(t, err)
	assert.Equal(t, "Poor", updated.Condition)
	assert.Equal(t, "Repair Required", updated.Status)
	assert.Equal(t, "2024-03-04", updated.LastMaintenance)
	assert.Equal(t, "2024-04-01", updated.NextMaintenance)
	require.Len(t, updated.History, 4)
	last := updated.History[3]
	assert.Equal(t, "Corrective Maintenance", last.Type)
	assert.Equal(t, []string{"Mechanical Failure", "Corrosion"}, last.Issues)
	assert.Equal(t, "High", last.Priority)

	stored, err := env.products.FindByCode(ctx, "PROD001")
	require.NoError(t, err)
	assert.Equal(t, asset.ConditionPoor, stored.Condition)
	assert.Len(t, stored.History, 4)

	current, err := env.sessions.Current(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "Poor", current.Product.Condition)

	assert.Equal(t, []string{asset.EventTypeConditionUpdated}, env.publisher.Types())
	assert.Equal(t, []string{"completed"}, env.metrics.Submissions())

	select {
	case <-task.Done():
	default:
		t.Fatal("Done must be closed after completion")
	}
}

func TestConditionService_DefaultsAndPreviousNextMaintenance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.sessions.Scan(ctx, "sid-1", "PROD003", ScanSourceManual)
	require.NoError(t, err)

	svc := newConditionService(env, ConditionServiceConfig{PersistUpdates: true, DefaultInspector: "Field Inspector"})
	before, err := env.lookup.Get(ctx, "PROD003")
	require.NoError(t, err)

	task, err := svc.Submit(ctx, "sid-1", "", ConditionUpdateRequest{
		Condition:       "Excellent",
		Status:          "Operational",
		MaintenanceType: "Inspection",
	})
	require.NoError(t, err)

	updated, err := waitTask(t, task)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", updated.LastMaintenance)
	assert.Equal(t, before.NextMaintenance, updated.NextMaintenance)
	last := updated.History[len(updated.History)-1]
	assert.Equal(t, "Field Inspector", last.Inspector)
	assert.Equal(t, "Medium", last.Priority)
	assert.Empty(t, last.Issues)
}

func TestConditionService_DiscardMode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.sessions.Scan(ctx, "sid-1", "PROD001", ScanSourceManual)
	require.NoError(t, err)

	svc := newConditionService(env, ConditionServiceConfig{PersistUpdates: false, DefaultInspector: "Field Inspector"})
	task, err := svc.Submit(ctx, "sid-1", "PROD001", validForm())
	require.NoError(t, err)

	updated, err := waitTask(t, task)
	require.NoError(t, err)
	assert.Equal(t, "Poor", updated.Condition)
	assert.Len(t, updated.History, 4)

	stored, err := env.products.FindByCode(ctx, "PROD001")
	require.NoError(t, err)
	assert.Equal(t, asset.ConditionGood, stored.Condition)
	assert.Len(t, stored.History, 3)

	current, err := env.sessions.Current(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "Good", current.Product.Condition)
	assert.Empty(t, env.publisher.Types())
}

func TestConditionService_CancelBeforeCompletion(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.sessions.Scan(context.Background(), "sid-1", "PROD001", ScanSourceManual)
	require.NoError(t, err)

	svc := newConditionService(env, ConditionServiceConfig{SubmitDelay: time.Hour, PersistUpdates: true})
	ctx, cancel := context.WithCancel(context.Background())
	task, err := svc.Submit(ctx, "sid-1", "PROD001", validForm())
	require.NoError(t, err)

	cancel()
	_, err = waitTask(t, task)
	assert.ErrorIs(t, err, context.Canceled)

	stored, err := env.products.FindByCode(context.Background(), "PROD001")
	require.NoError(t, err)
	assert.Equal(t, asset.ConditionGood, stored.Condition)
	assert.Len(t, stored.History, 3)
	assert.Equal(t, []string{"cancelled"}, env.metrics.Submissions())
}

func TestConditionService_WaitHonoursCallerContext(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.sessions.Scan(context.Background(), "sid-1", "PROD001", ScanSourceManual)
	require.NoError(t, err)

	svc := newConditionService(env, ConditionServiceConfig{SubmitDelay: time.Hour, PersistUpdates: true})
	submitCtx, cancelSubmit := context.WithCancel(context.Background())
	defer cancelSubmit()
	task, err := svc.Submit(submitCtx, "sid-1", "PROD001", validForm())
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = task.Wait(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConditionService_SubmitRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newConditionService(env, DefaultConditionServiceConfig())

	_, err := svc.Submit(ctx, "sid-1", "PROD001", validForm())
	assert.ErrorIs(t, err, inspection.ErrNoProductResolved)

	_, err = env.sessions.Scan(ctx, "sid-1", "PROD001", ScanSourceManual)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "sid-1", "PROD002", validForm())
	assert.ErrorIs(t, err, inspection.ErrProductMismatch)

	tests := []struct {
		name   string
		mutate func(*ConditionUpdateRequest)
		code   string
	}{
		{"unknown condition", func(r *ConditionUpdateRequest) { r.Condition = "Broken" }, "INVALID_CONDITION"},
		{"unknown status", func(r *ConditionUpdateRequest) { r.Status = "Parked" }, "INVALID_STATUS"},
		{"free-form type", func(r *ConditionUpdateRequest) { r.MaintenanceType = "Repair" }, "INVALID_MAINTENANCE_TYPE"},
		{"bad date", func(r *ConditionUpdateRequest) { r.InspectionDate = "04/03/2024" }, "INVALID_INSPECTION_DATE"},
		{"bad next date", func(r *ConditionUpdateRequest) { r.NextMaintenance = "soon" }, "INVALID_NEXT_MAINTENANCE"},
		{"unknown priority", func(r *ConditionUpdateRequest) { r.Priority = "Urgent" }, "INVALID_PRIORITY"},
		{"unknown issue", func(r *ConditionUpdateRequest) { r.Issues = []string{"Graffiti"} }, "INVALID_ISSUE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)
			_, err := svc.Submit(ctx, "sid-1", "PROD001", form)
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
		})
	}
}

func TestConditionService_DuplicateSubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.sessions.Scan(ctx, "sid-1", "PROD001", ScanSourceManual)
	require.NoError(t, err)
	_, err = env.sessions.Scan(ctx, "sid-2", "PROD001", ScanSourceManual)
	require.NoError(t, err)

	seen := cache.NewInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(func() { _ = seen.Close() })
	svc := NewConditionService(env.sessions, env.products,
		ConditionServiceConfig{PersistUpdates: true, SubmissionTTL: time.Hour},
		WithConditionMetrics(env.metrics),
		WithIdempotencyStore(seen),
	)

	form := validForm()
	form.SubmissionID = "form-1"

	task, err := svc.Submit(ctx, "sid-1", "PROD001", form)
	require.NoError(t, err)
	_, err = waitTask(t, task)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "sid-1", "PROD001", form)
	assert.ErrorIs(t, err, inspection.ErrDuplicateSubmission)

	stored, err := env.products.FindByCode(ctx, "PROD001")
	require.NoError(t, err)
	assert.Len(t, stored.History, 4, "the repeated form must not add a record")

	// the key is scoped to the session
	task, err = svc.Submit(ctx, "sid-2", "PROD001", form)
	require.NoError(t, err)
	_, err = waitTask(t, task)
	require.NoError(t, err)

	// forms without an ID are never deduplicated
	form.SubmissionID = ""
	for i := 0; i < 2; i++ {
		task, err = svc.Submit(ctx, "sid-1", "PROD001", form)
		require.NoError(t, err)
		_, err = waitTask(t, task)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"completed", "rejected", "completed", "completed", "completed"}, env.metrics.Submissions())
}

func TestConditionService_InvalidFormDoesNotClaimSubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.sessions.Scan(ctx, "sid-1", "PROD001", ScanSourceManual)
	require.NoError(t, err)

	seen := cache.NewInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(func() { _ = seen.Close() })
	svc := NewConditionService(env.sessions, env.products,
		ConditionServiceConfig{PersistUpdates: false},
		WithIdempotencyStore(seen),
	)

	form := validForm()
	form.SubmissionID = "form-2"
	form.Priority = "Whenever"
	_, err = svc.Submit(ctx, "sid-1", "PROD001", form)
	require.Error(t, err)

	processed, err := seen.IsProcessed(ctx, "sid-1:form-2")
	require.NoError(t, err)
	assert.False(t, processed)

	form.Priority = "Low"
	task, err := svc.Submit(ctx, "sid-1", "PROD001", form)
	require.NoError(t, err)
	_, err = waitTask(t, task)
	require.NoError(t, err)
}

func TestSubmissionTask_CompletesOnce(t *testing.T) {
	task := newSubmissionTask()
	task.complete(&ProductResponse{ProductID: "PROD001"}, nil)
	task.complete(nil, context.Canceled)

	got, err := task.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PROD001", got.ProductID)
}

// racingRepository commits a competing inspection from another session
// between the service's read and its first write.
type racingRepository struct {
	asset.ProductRepository
	competing asset.Inspection
	once      sync.Once
}

func (r *racingRepository) Update(ctx context.Context, product *asset.Product) error {
	var err error
	r.once.Do(func() {
		other, findErr := r.ProductRepository.FindByCode(ctx, product.Code)
		if findErr != nil {
			err = findErr
			return
		}
		if err = other.RecordInspection(r.competing); err != nil {
			return
		}
		err = r.ProductRepository.Update(ctx, other)
	})
	if err != nil {
		return err
	}
	return r.ProductRepository.Update(ctx, product)
}

// conflictingRepository rejects every write as stale
type conflictingRepository struct {
	asset.ProductRepository
	mu      sync.Mutex
	updates int
}

func (r *conflictingRepository) Update(context.Context, *asset.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	return shared.ErrConcurrencyConflict
}

func TestConditionService_ConcurrentSessionKeepsBothInspections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.sessions.Scan(ctx, "sid-1", "PROD001", ScanSourceManual)
	require.NoError(t, err)

	repo := &racingRepository{
		ProductRepository: env.products,
		competing: asset.Inspection{
			Condition: asset.ConditionExcellent,
			Status:    asset.StatusOperational,
			Type:      asset.TypeInspection,
			Inspector: "Arjun",
			Date:      time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
			Notes:     "other session",
		},
	}
	svc := NewConditionService(env.sessions, repo, ConditionServiceConfig{PersistUpdates: true},
		WithConditionMetrics(env.metrics),
		WithEventPublisher(env.publisher),
	)

	task, err := svc.Submit(ctx, "sid-1", "PROD001", validForm())
	require.NoError(t, err)
	updated, err := waitTask(t, task)
	require.NoError(t, err)
	require.Len(t, updated.History, 5)
	assert.Equal(t, "other session", updated.History[3].Notes)
	assert.Equal(t, "Detection rod bent", updated.History[4].Notes)

	stored, err := env.products.FindByCode(ctx, "PROD001")
	require.NoError(t, err)
	require.Len(t, stored.History, 5)
	latest, _ := stored.LatestEntry()
	assert.Equal(t, "Detection rod bent", latest.Notes)
	assert.Equal(t, asset.ConditionPoor, stored.Condition)
	assert.Equal(t, asset.StatusRepairRequired, stored.Status)
	assert.True(t, stored.LastMaintenance.Equal(latest.Date))
	assert.Equal(t, []string{"completed"}, env.metrics.Submissions())
}

func TestConditionService_GivesUpAfterRepeatedConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.sessions.Scan(ctx, "sid-1", "PROD001", ScanSourceManual)
	require.NoError(t, err)

	repo := &conflictingRepository{ProductRepository: env.products}
	svc := NewConditionService(env.sessions, repo, ConditionServiceConfig{PersistUpdates: true},
		WithConditionMetrics(env.metrics),
		WithEventPublisher(env.publisher),
	)

	task, err := svc.Submit(ctx, "sid-1", "PROD001", validForm())
	require.NoError(t, err)
	_, err = waitTask(t, task)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Equal(t, maxApplyAttempts, repo.updates)
	assert.Empty(t, env.publisher.Types())
	assert.Equal(t, []string{"failed"}, env.metrics.Submissions())

	stored, err := env.products.FindByCode(ctx, "PROD001")
	require.NoError(t, err)
	assert.Len(t, stored.History, 3)
}
