// Package inspection holds the use cases of the inspection dashboard:
// resolving products into inspector sessions, recording condition updates,
// filtering maintenance history and storing inspection photos.
package inspection

import (
	"context"
	"time"

	"github.com/railinspect/backend/internal/domain/shared"
)

// Application errors surfaced to the HTTP layer
var (
	ErrProductNotFound   = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found in database")
	ErrNoCodeDetected    = shared.NewDomainError("NO_CODE_DETECTED", "No QR code was found in the submitted frames")
	ErrCameraUnavailable = shared.NewDomainError("CAMERA_UNAVAILABLE", "Camera access denied or not available. Please use manual input.")
	ErrImageRequired     = shared.NewDomainError("IMAGE_REQUIRED", "Please select an image first")
	ErrInvalidProductID  = shared.NewDomainError("INVALID_PRODUCT_ID", "Product ID cannot be empty")
)

// ObjectStorage stores inspection photos.
// Implemented by the S3 and in-memory storages in the infrastructure layer.
type ObjectStorage interface {
	// PutObject uploads data under key
	PutObject(ctx context.Context, key, contentType string, data []byte) error

	// DeleteObject removes the object under key
	DeleteObject(ctx context.Context, key string) error

	// GenerateDownloadURL returns a URL the browser can fetch the object from
	// and the time it stops working.
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)

	// ObjectExists checks if an object is stored under key
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// Metrics receives domain outcomes
type Metrics interface {
	RecordScan(source, outcome string)
	RecordSubmission(outcome string)
	RecordUpload(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) RecordScan(string, string) {}
func (nopMetrics) RecordSubmission(string)   {}
func (nopMetrics) RecordUpload(string)       {}

// Scan sources
const (
	ScanSourceManual = "manual"
	ScanSourceCamera = "camera"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }
