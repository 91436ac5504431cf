package event

import (
	"context"

	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes an audit line for every inspection outcome
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an AuditLogHandler
func NewAuditLogHandler(l *zap.Logger) *AuditLogHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuditLogHandler{logger: l.Named("audit")}
}

// EventTypes returns the asset events this handler records
func (h *AuditLogHandler) EventTypes() []string {
	return []string{asset.EventTypeConditionUpdated, asset.EventTypeImageUploaded}
}

// Handle logs the event with its domain fields
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	if sid := logger.GetSessionID(ctx); sid != "" {
		fields = append(fields, zap.String("session_id", sid))
	}

	switch e := event.(type) {
	case *asset.ConditionUpdatedEvent:
		fields = append(fields,
			zap.String("product_id", e.ProductCode),
			zap.String("old_condition", e.OldCondition.String()),
			zap.String("new_condition", e.NewCondition.String()),
			zap.String("old_status", e.OldStatus.String()),
			zap.String("new_status", e.NewStatus.String()),
			zap.String("maintenance_type", e.MaintenanceType),
			zap.String("inspector", e.Inspector),
			zap.String("priority", e.Priority.String()),
		)
		h.logger.Info("Product condition updated", fields...)
	case *asset.ImageUploadedEvent:
		fields = append(fields,
			zap.String("product_id", e.ProductCode),
			zap.String("attachment_id", e.AttachmentID.String()),
			zap.String("storage_key", e.StorageKey),
			zap.String("location", e.Location),
		)
		h.logger.Info("Inspection photo uploaded", fields...)
	default:
		h.logger.Debug("Unhandled audit event", fields...)
	}
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
