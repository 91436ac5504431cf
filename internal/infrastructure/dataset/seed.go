package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SeedResult reports what a seed run did
type SeedResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Seed inserts products that are not stored yet. Existing products are never
// overwritten, so recorded inspections survive restarts.
func Seed(ctx context.Context, repo asset.ProductRepository, products []*asset.Product, logger *zap.Logger) (SeedResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var result SeedResult
	for _, p := range products {
		exists, err := repo.ExistsByCode(ctx, p.Code)
		if err != nil {
			return result, fmt.Errorf("check product %s: %w", p.Code, err)
		}
		if exists {
			result.Skipped++
			continue
		}
		if err := repo.Create(ctx, p); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("create product %s: %w", p.Code, err)
		}
		result.Inserted++
		logger.Debug("Seeded product", zap.String("product_id", p.Code), zap.Int("history", len(p.History)))
	}

	logger.Info("Dataset seeded", zap.Int("inserted", result.Inserted), zap.Int("skipped", result.Skipped))
	return result, nil
}
