package persistence

import (
	"context"

	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAttachmentRepository implements asset.AttachmentRepository using GORM
type GormAttachmentRepository struct {
	db *gorm.DB
}

// NewGormAttachmentRepository creates a new GormAttachmentRepository
func NewGormAttachmentRepository(db *gorm.DB) *GormAttachmentRepository {
	return &GormAttachmentRepository{db: db}
}

// Save inserts a new attachment record
func (r *GormAttachmentRepository) Save(ctx context.Context, attachment *asset.ImageAttachment) error {
	return r.db.WithContext(ctx).Create(models.ImageAttachmentModelFromDomain(attachment)).Error
}

// FindByProductCode returns the photos of a product, oldest first
func (r *GormAttachmentRepository) FindByProductCode(ctx context.Context, code string) ([]asset.ImageAttachment, error) {
	var attachmentModels []models.ImageAttachmentModel
	if err := r.db.WithContext(ctx).
		Where("product_code = ?", code).
		Order("uploaded_at ASC").
		Find(&attachmentModels).Error; err != nil {
		return nil, err
	}

	attachments := make([]asset.ImageAttachment, len(attachmentModels))
	for i := range attachmentModels {
		attachments[i] = *attachmentModels[i].ToDomain()
	}
	return attachments, nil
}

var _ asset.AttachmentRepository = (*GormAttachmentRepository)(nil)
