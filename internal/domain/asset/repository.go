package asset

import "context"

// ProductRepository defines persistence for products and their history
type ProductRepository interface {
	// FindByCode finds a product by its exact identifier, with history in order
	FindByCode(ctx context.Context, code string) (*Product, error)

	// FindAll returns the products matching the filter. Unknown sort fields
	// fall back to ordering by identifier.
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, error)

	// ExistsByCode checks if a product exists
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// Create inserts a new product with its history
	Create(ctx context.Context, product *Product) error

	// Update persists a recorded inspection: the mutable fields and any new
	// history entries are written atomically, guarded by the product version.
	Update(ctx context.Context, product *Product) error

	// Count returns the number of products
	Count(ctx context.Context) (int64, error)
}

// ProductFilter narrows and orders a product listing. Empty fields match all.
type ProductFilter struct {
	Category  string
	Condition Condition
	Status    Status
	SortBy    string
	SortOrder string
}

// AttachmentRepository defines persistence for inspection photos
type AttachmentRepository interface {
	Save(ctx context.Context, attachment *ImageAttachment) error
	FindByProductCode(ctx context.Context, code string) ([]ImageAttachment, error)
}
