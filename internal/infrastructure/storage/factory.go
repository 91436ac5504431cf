package storage

import (
	"context"
	"fmt"

	inspectionapp "github.com/railinspect/backend/internal/application/inspection"
	infraconfig "github.com/railinspect/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewObjectStorage selects the photo storage backend from configuration.
// When CreateBucket is set the S3 bucket is created on first use.
func NewObjectStorage(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (inspectionapp.ObjectStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Type {
	case "", "memory":
		logger.Info("Using in-memory photo storage")
		return NewMemoryObjectStorage(), nil
	case "s3":
		s3Storage, err := NewS3ObjectStorage(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if cfg.CreateBucket {
			if err := s3Storage.EnsureBucket(ctx); err != nil {
				return nil, err
			}
		}
		logger.Info("Using S3 photo storage",
			zap.String("endpoint", cfg.Endpoint),
			zap.String("bucket", cfg.Bucket))
		return s3Storage, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
