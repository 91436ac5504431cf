package inspection

import (
	"context"
	"errors"
	"strings"

	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/infrastructure/telemetry"
)

// LookupService resolves product identifiers against the seeded dataset.
// Lookups are exact: no fuzzy matching and no remote fetch.
type LookupService struct {
	products asset.ProductRepository
}

// NewLookupService creates a new LookupService
func NewLookupService(products asset.ProductRepository) *LookupService {
	return &LookupService{products: products}
}

// Find returns the product with the given identifier after trimming
// surrounding whitespace. Unknown identifiers return ErrProductNotFound.
func (s *LookupService) Find(ctx context.Context, productID string) (*asset.Product, error) {
	code := strings.TrimSpace(productID)
	if code == "" {
		return nil, ErrInvalidProductID
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "lookup", "find", telemetry.SpanAttrProductID, code)
	defer span.End()

	product, err := s.products.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	return product, nil
}

// Get returns the product as an API response
func (s *LookupService) Get(ctx context.Context, productID string) (*ProductResponse, error) {
	product, err := s.Find(ctx, productID)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// List returns the products matching the query, ordered by identifier
// unless another sort key is given
func (s *LookupService) List(ctx context.Context, q ProductListQuery) ([]ProductResponse, error) {
	filter := asset.ProductFilter{
		Category:  strings.TrimSpace(q.Category),
		Condition: asset.Condition(strings.TrimSpace(q.Condition)),
		Status:    asset.Status(strings.TrimSpace(q.Status)),
		SortBy:    q.Sort,
		SortOrder: q.Order,
	}
	if filter.Condition != "" && !filter.Condition.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONDITION", "Unknown condition filter: "+filter.Condition.String())
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown status filter: "+filter.Status.String())
	}

	products, err := s.products.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i])
	}
	return out, nil
}
