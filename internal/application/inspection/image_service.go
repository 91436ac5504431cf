package inspection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"github.com/railinspect/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ImageServiceConfig holds photo upload settings
type ImageServiceConfig struct {
	MaxImageSize      int64
	DownloadURLExpiry time.Duration
}

// DefaultImageServiceConfig returns the default configuration
func DefaultImageServiceConfig() ImageServiceConfig {
	return ImageServiceConfig{
		MaxImageSize:      asset.DefaultMaxImageSize,
		DownloadURLExpiry: time.Hour,
	}
}

// ImageService stores geo-tagged inspection photos of the resolved product
type ImageService struct {
	sessions    *SessionService
	attachments asset.AttachmentRepository
	storage     ObjectStorage
	publisher   shared.EventPublisher
	metrics     Metrics
	config      ImageServiceConfig
	now         func() time.Time
}

// ImageServiceOption configures an ImageService
type ImageServiceOption func(*ImageService)

// WithImageMetrics sets the metrics sink
func WithImageMetrics(m Metrics) ImageServiceOption {
	return func(s *ImageService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithImageEventPublisher sets the publisher for ImageUploaded events
func WithImageEventPublisher(p shared.EventPublisher) ImageServiceOption {
	return func(s *ImageService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// NewImageService creates a new ImageService
func NewImageService(
	sessions *SessionService,
	attachments asset.AttachmentRepository,
	storage ObjectStorage,
	cfg ImageServiceConfig,
	opts ...ImageServiceOption,
) *ImageService {
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = asset.DefaultMaxImageSize
	}
	if cfg.DownloadURLExpiry <= 0 {
		cfg.DownloadURLExpiry = time.Hour
	}
	s := &ImageService{
		sessions:    sessions,
		attachments: attachments,
		storage:     storage,
		publisher:   nopPublisher{},
		metrics:     nopMetrics{},
		config:      cfg,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxImageSize returns the upload limit in bytes
func (s *ImageService) MaxImageSize() int64 {
	return s.config.MaxImageSize
}

// StorageKey returns the object key of a photo: products/<id>/images/<uuid><ext>
func StorageKey(productID string, id uuid.UUID, ext string) string {
	return fmt.Sprintf("products/%s/images/%s%s", productID, id, ext)
}

// Upload stores a photo of the product resolved in the session, tagged with
// the upload time and the location the product was scanned at.
func (s *ImageService) Upload(ctx context.Context, sessionID string, req UploadImageRequest) (*UploadImageResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "image", "upload",
		telemetry.SpanAttrSessionID, sessionID,
		telemetry.SpanAttrProductID, req.ProductID,
	)
	defer span.End()

	resp, err := s.upload(ctx, sessionID, req)
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			s.metrics.RecordUpload(telemetry.OutcomeRejected)
		} else {
			telemetry.RecordError(span, err)
			s.metrics.RecordUpload(telemetry.OutcomeFailed)
		}
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrStorageKey, resp.Attachment.StorageKey)
	s.metrics.RecordUpload(telemetry.OutcomeStored)
	return resp, nil
}

func (s *ImageService) upload(ctx context.Context, sessionID string, req UploadImageRequest) (*UploadImageResponse, error) {
	resolved, err := s.sessions.Resolved(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	product := resolved.Product
	if id := strings.TrimSpace(req.ProductID); id != "" && id != product.Code {
		return nil, inspection.ErrProductMismatch
	}
	if len(req.Data) == 0 {
		return nil, ErrImageRequired
	}
	if int64(len(req.Data)) > s.config.MaxImageSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE",
			fmt.Sprintf("Image exceeds the maximum upload size of %d bytes", s.config.MaxImageSize))
	}

	detected := mimetype.Detect(req.Data)
	contentType, _, _ := strings.Cut(detected.String(), ";")
	if !asset.IsAllowedImageType(contentType) {
		return nil, shared.NewDomainError("INVALID_CONTENT_TYPE",
			fmt.Sprintf("Only image files can be uploaded, got %s", contentType))
	}

	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		fileName = "photo" + detected.Extension()
	}

	key := StorageKey(product.Code, uuid.New(), detected.Extension())
	attachment, err := asset.NewImageAttachment(product.Code, fileName, contentType,
		int64(len(req.Data)), s.config.MaxImageSize, key, resolved.ScannedLocation)
	if err != nil {
		return nil, err
	}
	attachment.Inspector = strings.TrimSpace(req.Inspector)
	attachment.UploadedAt = s.now()

	if err := s.storage.PutObject(ctx, key, contentType, req.Data); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	if err := s.attachments.Save(ctx, attachment); err != nil {
		if delErr := s.storage.DeleteObject(ctx, key); delErr != nil {
			logger.L(ctx).Warn("Failed to remove orphaned image",
				zap.String("storage_key", key),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("failed to record image: %w", err)
	}

	if err := s.publisher.Publish(ctx, asset.NewImageUploadedEvent(product.ID, attachment)); err != nil {
		logger.L(ctx).Warn("Failed to publish image event", zap.Error(err))
	}

	timestamp := attachment.UploadedAt.Format(time.RFC1123)
	return &UploadImageResponse{
		Attachment: s.withURL(ctx, ToImageAttachmentResponse(attachment)),
		Timestamp:  timestamp,
		Location:   attachment.Location,
		Message: fmt.Sprintf("Image uploaded successfully!\nTimestamp: %s\nLocation: %s",
			timestamp, attachment.Location),
	}, nil
}

// List returns the photos of a product, newest last, with download URLs
func (s *ImageService) List(ctx context.Context, productID string) ([]ImageAttachmentResponse, error) {
	attachments, err := s.attachments.FindByProductCode(ctx, strings.TrimSpace(productID))
	if err != nil {
		return nil, err
	}
	out := make([]ImageAttachmentResponse, len(attachments))
	for i := range attachments {
		out[i] = s.withURL(ctx, ToImageAttachmentResponse(&attachments[i]))
	}
	return out, nil
}

func (s *ImageService) withURL(ctx context.Context, resp ImageAttachmentResponse) ImageAttachmentResponse {
	url, expires, err := s.storage.GenerateDownloadURL(ctx, resp.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		logger.L(ctx).Warn("Failed to generate download URL",
			zap.String("storage_key", resp.StorageKey),
			zap.Error(err),
		)
		return resp
	}
	resp.URL = url
	resp.URLExpires = &expires
	return resp
}
