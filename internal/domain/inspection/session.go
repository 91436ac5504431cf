package inspection

import (
	"time"

	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/shared"
)

// Errors raised by session transitions
var (
	ErrNoProductResolved = shared.NewDomainError("NO_PRODUCT_RESOLVED", "No product has been scanned in this session")
	ErrProductMismatch   = shared.NewDomainError("PRODUCT_MISMATCH", "The requested product is not the one resolved in this session")
	// ErrDuplicateSubmission rejects a condition form that was already submitted
	ErrDuplicateSubmission = shared.NewDomainError("DUPLICATE_SUBMISSION", "This condition update has already been submitted")
)

// ResolvedProduct is the product an inspector is currently working on,
// tagged with where the scan happened.
type ResolvedProduct struct {
	Product         *asset.Product
	ScannedLocation string
	ScannedAt       time.Time
}

// Session holds the navigation state of one inspector: at most one resolved
// product plus the last known coordinate of the device.
type Session struct {
	ID        string
	Location  string
	Resolved  *ResolvedProduct
	UpdatedAt time.Time
}

// NewSession creates an empty session
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Location:  LocationNotAvailable,
		UpdatedAt: time.Now(),
	}
}

// HasProduct reports whether a product is resolved
func (s *Session) HasProduct() bool {
	return s.Resolved != nil && s.Resolved.Product != nil
}

// Resolve replaces the resolved product with a snapshot of p tagged with the
// current location.
func (s *Session) Resolve(p *asset.Product, at time.Time) *ResolvedProduct {
	location := s.Location
	if location == "" {
		location = LocationNotAvailable
	}
	s.Resolved = &ResolvedProduct{
		Product:         p.Clone(),
		ScannedLocation: location,
		ScannedAt:       at,
	}
	s.UpdatedAt = at
	return s.Resolved
}

// Refresh swaps the product snapshot after an update, keeping the scan tag
func (s *Session) Refresh(p *asset.Product) error {
	if !s.HasProduct() {
		return ErrNoProductResolved
	}
	if s.Resolved.Product.Code != p.Code {
		return ErrProductMismatch
	}
	s.Resolved.Product = p.Clone()
	s.UpdatedAt = time.Now()
	return nil
}

// Clear drops the resolved product
func (s *Session) Clear() {
	s.Resolved = nil
	s.UpdatedAt = time.Now()
}

// SetLocation records the last known coordinate, or the not-available sentinel
func (s *Session) SetLocation(location string) {
	if location == "" {
		location = LocationNotAvailable
	}
	s.Location = location
	s.UpdatedAt = time.Now()
}

// Product returns the resolved product or ErrNoProductResolved
func (s *Session) Product() (*ResolvedProduct, error) {
	if !s.HasProduct() {
		return nil, ErrNoProductResolved
	}
	return s.Resolved, nil
}

// Clone returns a deep copy so stores never share mutable state with callers
func (s *Session) Clone() *Session {
	c := *s
	if s.Resolved != nil {
		r := *s.Resolved
		if r.Product != nil {
			r.Product = r.Product.Clone()
		}
		c.Resolved = &r
	}
	return &c
}
