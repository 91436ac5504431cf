package event

import "github.com/railinspect/backend/internal/domain/asset"

// RegisterAllEvents registers every asset event with the serializer
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(asset.EventTypeConditionUpdated, &asset.ConditionUpdatedEvent{})
	serializer.Register(asset.EventTypeImageUploaded, &asset.ImageUploadedEvent{})
}

// NewAssetEventSerializer returns a serializer that knows every asset event
func NewAssetEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterAllEvents(s)
	return s
}
