package asset

import (
	"strings"
	"time"

	"github.com/railinspect/backend/internal/domain/shared"
)

// DefaultMaxImageSize bounds an uploaded inspection photo (10MB)
const DefaultMaxImageSize = 10 * 1024 * 1024

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/bmp":  {},
	"image/tiff": {},
}

// IsAllowedImageType reports whether the content type is an accepted photo format
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[strings.ToLower(contentType)]
	return ok
}

// ImageAttachment is a photo taken during an inspection.
// It records when and where the photo was taken next to the stored object key.
type ImageAttachment struct {
	shared.BaseEntity
	ProductCode string
	FileName    string
	ContentType string
	FileSize    int64
	StorageKey  string
	Location    string
	Inspector   string
	UploadedAt  time.Time
}

// NewImageAttachment validates and creates an attachment record
func NewImageAttachment(productCode, fileName, contentType string, size, maxSize int64, storageKey, location string) (*ImageAttachment, error) {
	if strings.TrimSpace(productCode) == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_ID", "Product ID cannot be empty")
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if len(fileName) > 255 {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot exceed 255 characters")
	}
	if !IsAllowedImageType(contentType) {
		return nil, shared.NewDomainError("INVALID_CONTENT_TYPE", "Only image files can be uploaded")
	}
	if size <= 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File is empty")
	}
	if maxSize > 0 && size > maxSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "Image exceeds the maximum upload size")
	}
	if strings.TrimSpace(storageKey) == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key cannot be empty")
	}

	entity := shared.NewBaseEntity()
	return &ImageAttachment{
		BaseEntity:  entity,
		ProductCode: productCode,
		FileName:    fileName,
		ContentType: strings.ToLower(contentType),
		FileSize:    size,
		StorageKey:  storageKey,
		Location:    location,
		UploadedAt:  entity.CreatedAt,
	}, nil
}
