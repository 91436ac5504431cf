package asset

import (
	"github.com/google/uuid"
	"github.com/railinspect/backend/internal/domain/shared"
)

// Event type constants
const (
	EventTypeConditionUpdated = "ConditionUpdated"
	EventTypeImageUploaded    = "ImageUploaded"
)

// ConditionUpdatedEvent is published when an inspection is recorded against a product
type ConditionUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductCode     string    `json:"product_code"`
	OldCondition    Condition `json:"old_condition"`
	NewCondition    Condition `json:"new_condition"`
	OldStatus       Status    `json:"old_status"`
	NewStatus       Status    `json:"new_status"`
	MaintenanceType string    `json:"maintenance_type"`
	Inspector       string    `json:"inspector"`
	Priority        Priority  `json:"priority"`
}

// NewConditionUpdatedEvent creates a new ConditionUpdatedEvent
func NewConditionUpdatedEvent(p *Product, oldCondition Condition, oldStatus Status, entry MaintenanceEntry) *ConditionUpdatedEvent {
	return &ConditionUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConditionUpdated, AggregateTypeProduct, p.ID),
		ProductCode:     p.Code,
		OldCondition:    oldCondition,
		NewCondition:    p.Condition,
		OldStatus:       oldStatus,
		NewStatus:       p.Status,
		MaintenanceType: entry.Type,
		Inspector:       entry.Inspector,
		Priority:        entry.Priority,
	}
}

// ImageUploadedEvent is published when an inspection photo is stored
type ImageUploadedEvent struct {
	shared.BaseDomainEvent
	AttachmentID uuid.UUID `json:"attachment_id"`
	ProductCode  string    `json:"product_code"`
	StorageKey   string    `json:"storage_key"`
	Location     string    `json:"location"`
}

// NewImageUploadedEvent creates a new ImageUploadedEvent
func NewImageUploadedEvent(productID uuid.UUID, a *ImageAttachment) *ImageUploadedEvent {
	return &ImageUploadedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeImageUploaded, AggregateTypeProduct, productID),
		AttachmentID:    a.ID,
		ProductCode:     a.ProductCode,
		StorageKey:      a.StorageKey,
		Location:        a.Location,
	}
}
