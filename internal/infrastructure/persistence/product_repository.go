package persistence

import (
	"context"
	"errors"

	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements asset.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func orderedEntries(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

// FindByCode finds a product by its exact identifier
func (r *GormProductRepository) FindByCode(ctx context.Context, code string) (*asset.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Preload("Entries", orderedEntries).
		Where("code = ?", code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns the products matching the filter. Ties on the sort
// column are broken by identifier.
func (r *GormProductRepository) FindAll(ctx context.Context, filter asset.ProductFilter) ([]asset.Product, error) {
	query := r.db.WithContext(ctx).Preload("Entries", orderedEntries)
	if filter.Category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", filter.Category)
	}
	if filter.Condition != "" {
		query = query.Where("condition = ?", filter.Condition.String())
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status.String())
	}

	column := ValidateSortField(filter.SortBy, ProductSortFields, "code")
	query = query.Order(clause.OrderByColumn{
		Column: clause.Column{Name: column},
		Desc:   ValidateSortOrder(filter.SortOrder, "ASC") == "DESC",
	})
	if column != "code" {
		query = query.Order("code ASC")
	}

	var productModels []models.ProductModel
	if err := query.Find(&productModels).Error; err != nil {
		return nil, err
	}

	products := make([]asset.Product, len(productModels))
	for i := range productModels {
		products[i] = *productModels[i].ToDomain()
	}
	return products, nil
}

// ExistsByCode checks if a product with the identifier exists
func (r *GormProductRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the number of products
func (r *GormProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a product together with its history
func (r *GormProductRepository) Create(ctx context.Context, product *asset.Product) error {
	model := models.ProductModelFromDomain(product)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.ErrAlreadyExists
			}
			return err
		}
		if len(model.Entries) > 0 {
			if err := tx.Create(&model.Entries).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	product.MarkPersisted()
	return nil
}

// Update writes the mutable product fields and appends the history entries
// recorded since the product was loaded. The write only applies when both the
// stored version and the stored history length still match what was loaded.
func (r *GormProductRepository) Update(ctx context.Context, product *asset.Product) error {
	model := models.ProductModelFromDomain(product)
	loadedVersion, loadedEntries := product.PersistedVersion(), product.PersistedEntries()
	if loadedEntries > len(model.Entries) {
		return shared.ErrConcurrencyConflict
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored int64
		if err := tx.Model(&models.MaintenanceEntryModel{}).
			Where("product_id = ?", model.ID).
			Count(&stored).Error; err != nil {
			return err
		}
		if int(stored) != loadedEntries {
			return shared.ErrConcurrencyConflict
		}

		result := tx.Model(&models.ProductModel{}).
			Where("id = ? AND version = ?", model.ID, loadedVersion).
			Updates(map[string]any{
				"condition":        model.Condition,
				"status":           model.Status,
				"last_maintenance": model.LastMaintenance,
				"next_maintenance": model.NextMaintenance,
				"version":          model.Version,
				"updated_at":       model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if added := model.Entries[loadedEntries:]; len(added) > 0 {
			if err := tx.Create(&added).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return shared.ErrConcurrencyConflict
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	product.MarkPersisted()
	return nil
}

var _ asset.ProductRepository = (*GormProductRepository)(nil)
