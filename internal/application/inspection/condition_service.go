package inspection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"github.com/railinspect/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultSubmitDelay is the artificial processing time of a submission
const DefaultSubmitDelay = 2 * time.Second

// ConditionServiceConfig holds the condition-update workflow settings
type ConditionServiceConfig struct {
	// SubmitDelay elapses before a submission completes. Zero completes at once.
	SubmitDelay time.Duration
	// PersistUpdates writes completed submissions. When false the updated
	// record is computed, returned and discarded.
	PersistUpdates bool
	// DefaultInspector fills an empty inspector field
	DefaultInspector string
	// SubmissionTTL is how long a submission ID is remembered
	SubmissionTTL time.Duration
}

// DefaultConditionServiceConfig returns the default configuration
func DefaultConditionServiceConfig() ConditionServiceConfig {
	return ConditionServiceConfig{
		SubmitDelay:      DefaultSubmitDelay,
		PersistUpdates:   true,
		DefaultInspector: "Field Inspector",
		SubmissionTTL:    shared.DefaultIdempotencyTTL,
	}
}

// SubmissionTask is a condition update in flight.
// Done is closed exactly once when the task completes, fails or is cancelled.
type SubmissionTask struct {
	done   chan struct{}
	once   sync.Once
	result *ProductResponse
	err    error
}

func newSubmissionTask() *SubmissionTask {
	return &SubmissionTask{done: make(chan struct{})}
}

func (t *SubmissionTask) complete(result *ProductResponse, err error) {
	t.once.Do(func() {
		t.result = result
		t.err = err
		close(t.done)
	})
}

// Done is closed when the task has finished
func (t *SubmissionTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx ends. It returns the updated
// product, or the error that ended the task.
func (t *SubmissionTask) Wait(ctx context.Context) (*ProductResponse, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ConditionService records inspections against the product resolved in a session
type ConditionService struct {
	sessions  *SessionService
	products  asset.ProductRepository
	publisher shared.EventPublisher
	seen      shared.IdempotencyStore
	metrics   Metrics
	config    ConditionServiceConfig
	now       func() time.Time
}

// ConditionServiceOption configures a ConditionService
type ConditionServiceOption func(*ConditionService)

// WithConditionMetrics sets the metrics sink
func WithConditionMetrics(m Metrics) ConditionServiceOption {
	return func(s *ConditionService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithEventPublisher sets the publisher for ConditionUpdated events
func WithEventPublisher(p shared.EventPublisher) ConditionServiceOption {
	return func(s *ConditionService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithIdempotencyStore enables duplicate detection for requests that carry a
// submission ID
func WithIdempotencyStore(store shared.IdempotencyStore) ConditionServiceOption {
	return func(s *ConditionService) {
		s.seen = store
	}
}

// NewConditionService creates a new ConditionService
func NewConditionService(
	sessions *SessionService,
	products asset.ProductRepository,
	cfg ConditionServiceConfig,
	opts ...ConditionServiceOption,
) *ConditionService {
	if cfg.SubmitDelay < 0 {
		cfg.SubmitDelay = 0
	}
	s := &ConditionService{
		sessions:  sessions,
		products:  products,
		publisher: nopPublisher{},
		metrics:   nopMetrics{},
		config:    cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the workflow settings
func (s *ConditionService) Config() ConditionServiceConfig {
	return s.config
}

// Submit validates the form against the session's resolved product and
// starts the submission. productID, when set, must match the resolved product.
// Cancelling ctx before the task completes cancels it and nothing is written.
func (s *ConditionService) Submit(ctx context.Context, sessionID, productID string, req ConditionUpdateRequest) (*SubmissionTask, error) {
	resolved, err := s.sessions.Resolved(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	code := resolved.Product.Code
	if productID = strings.TrimSpace(productID); productID != "" && productID != code {
		return nil, inspection.ErrProductMismatch
	}

	in, err := s.buildInspection(req)
	if err != nil {
		s.metrics.RecordSubmission(telemetry.OutcomeRejected)
		return nil, err
	}

	if err := s.claimSubmission(ctx, sessionID, req.SubmissionID); err != nil {
		s.metrics.RecordSubmission(telemetry.OutcomeRejected)
		return nil, err
	}

	task := newSubmissionTask()
	go s.run(ctx, task, sessionID, resolved.Product, in)
	return task, nil
}

// claimSubmission marks the submission ID as used. A claimed ID stays used
// even if the task later fails; re-rendered forms carry a fresh one.
func (s *ConditionService) claimSubmission(ctx context.Context, sessionID, submissionID string) error {
	submissionID = strings.TrimSpace(submissionID)
	if s.seen == nil || submissionID == "" {
		return nil
	}
	isNew, err := s.seen.MarkProcessed(ctx, sessionID+":"+submissionID, s.config.SubmissionTTL)
	if err != nil {
		return err
	}
	if !isNew {
		logger.L(ctx).Info("Duplicate condition submission rejected", zap.String("submission_id", submissionID))
		return inspection.ErrDuplicateSubmission
	}
	return nil
}

func (s *ConditionService) buildInspection(req ConditionUpdateRequest) (asset.Inspection, error) {
	inspector := strings.TrimSpace(req.Inspector)
	if inspector == "" {
		inspector = s.config.DefaultInspector
	}

	date := s.today()
	if v := strings.TrimSpace(req.InspectionDate); v != "" {
		d, err := time.Parse(DateLayout, v)
		if err != nil {
			return asset.Inspection{}, shared.NewDomainError("INVALID_INSPECTION_DATE", "Inspection date must be in YYYY-MM-DD format")
		}
		date = d
	}

	var next time.Time
	if v := strings.TrimSpace(req.NextMaintenance); v != "" {
		d, err := time.Parse(DateLayout, v)
		if err != nil {
			return asset.Inspection{}, shared.NewDomainError("INVALID_NEXT_MAINTENANCE", "Next maintenance date must be in YYYY-MM-DD format")
		}
		next = d
	}

	priority := asset.Priority(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = asset.DefaultPriority
	}

	in := asset.Inspection{
		Condition:       asset.Condition(strings.TrimSpace(req.Condition)),
		Status:          asset.Status(strings.TrimSpace(req.Status)),
		Type:            strings.TrimSpace(req.MaintenanceType),
		Inspector:       inspector,
		Date:            date,
		Notes:           strings.TrimSpace(req.Notes),
		Issues:          asset.NormalizeIssues(req.Issues),
		Recommendations: strings.TrimSpace(req.Recommendations),
		NextMaintenance: next,
		Priority:        priority,
	}
	if err := in.Validate(); err != nil {
		return asset.Inspection{}, err
	}
	return in, nil
}

func (s *ConditionService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *ConditionService) run(ctx context.Context, task *SubmissionTask, sessionID string, snapshot *asset.Product, in asset.Inspection) {
	ctx, span := telemetry.StartServiceSpan(ctx, "condition", "submit",
		telemetry.SpanAttrSessionID, sessionID,
		telemetry.SpanAttrProductID, snapshot.Code,
		telemetry.SpanAttrCondition, in.Condition.String(),
		telemetry.SpanAttrStatus, in.Status.String(),
		telemetry.SpanAttrMaintenanceType, in.Type,
	)
	defer span.End()
	log := logger.L(ctx).With(zap.String("product_id", snapshot.Code))

	if s.config.SubmitDelay > 0 {
		timer := time.NewTimer(s.config.SubmitDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.metrics.RecordSubmission(telemetry.OutcomeCancelled)
			log.Info("Condition update cancelled before completion")
			task.complete(nil, ctx.Err())
			return
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		s.metrics.RecordSubmission(telemetry.OutcomeCancelled)
		task.complete(nil, err)
		return
	}

	product, err := s.apply(ctx, sessionID, snapshot, in)
	if err != nil {
		telemetry.RecordError(span, err)
		outcome := telemetry.OutcomeFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = telemetry.OutcomeCancelled
		}
		s.metrics.RecordSubmission(outcome)
		log.Warn("Condition update failed", zap.Error(err))
		task.complete(nil, err)
		return
	}

	s.metrics.RecordSubmission(telemetry.OutcomeCompleted)
	log.Info("Product condition updated",
		zap.String("condition", product.Condition.String()),
		zap.String("status", product.Status.String()),
		zap.Bool("persisted", s.config.PersistUpdates),
	)
	resp := ToProductResponse(product)
	task.complete(&resp, nil)
}

// maxApplyAttempts bounds the reload and retry loop when another session
// updates the same product between the read and the write.
const maxApplyAttempts = 3

// apply records the inspection. In persist mode the product is reloaded so
// the write is checked against the stored version, then written in one
// transaction and the session snapshot refreshed.
func (s *ConditionService) apply(ctx context.Context, sessionID string, snapshot *asset.Product, in asset.Inspection) (*asset.Product, error) {
	if !s.config.PersistUpdates {
		product := snapshot.Clone()
		if err := product.RecordInspection(in); err != nil {
			return nil, err
		}
		product.ClearDomainEvents()
		return product, nil
	}

	var product *asset.Product
	for attempt := 1; ; attempt++ {
		var err error
		product, err = s.record(ctx, snapshot.Code, in)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt == maxApplyAttempts {
			return nil, err
		}
		logger.L(ctx).Debug("Product changed during update, retrying",
			zap.String("product_id", snapshot.Code),
			zap.Int("attempt", attempt),
		)
	}

	events := product.GetDomainEvents()
	product.ClearDomainEvents()
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.L(ctx).Warn("Failed to publish condition events", zap.Error(err))
	}

	if err := s.sessions.Refresh(ctx, sessionID, product); err != nil {
		return nil, err
	}
	return product, nil
}

// record loads the stored product, applies the inspection and writes it back
func (s *ConditionService) record(ctx context.Context, code string, in asset.Inspection) (*asset.Product, error) {
	product, err := s.products.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if err := product.RecordInspection(in); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}
