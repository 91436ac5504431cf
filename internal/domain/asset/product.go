package asset

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/railinspect/backend/internal/domain/shared"
)

// AggregateTypeProduct is the aggregate type name used in domain events
const AggregateTypeProduct = "Product"

// Specification is one technical key/value pair of an asset
type Specification struct {
	Key   string
	Value string
}

// Product is an inspected railway asset.
// It is the aggregate root for the maintenance history of that asset.
type Product struct {
	shared.BaseAggregateRoot
	Code              string // productId in the dataset
	Name              string
	Category          string
	Model             string
	SerialNumber      string
	ManufacturingDate time.Time
	InstallationDate  time.Time
	Warranty          string
	WarrantyExpiry    time.Time
	VendorName        string
	VendorContact     string
	VendorEmail       string
	Location          string
	LastMaintenance   time.Time
	NextMaintenance   time.Time
	Condition         Condition
	Status            Status
	Specifications    []Specification
	History           []MaintenanceEntry

	// version and history length as last read from or written to storage
	persistedVersion int
	persistedEntries int
}

// NewProduct creates a product with the given identifier and name
func NewProduct(code, name string) (*Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_ID", "Product ID cannot be empty")
	}
	if len(code) > 64 {
		return nil, shared.NewDomainError("INVALID_PRODUCT_ID", "Product ID cannot exceed 64 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Specifications:    make([]Specification, 0),
		History:           make([]MaintenanceEntry, 0),
	}, nil
}

// SetSpecifications replaces the specification list, ordered by key for display
func (p *Product) SetSpecifications(specs map[string]string) {
	out := make([]Specification, 0, len(specs))
	for k, v := range specs {
		out = append(out, Specification{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	p.Specifications = out
}

// AppendHistory adds imported entries without touching condition or status.
// Used when loading a dataset whose current values were recorded separately.
func (p *Product) AppendHistory(entries ...MaintenanceEntry) {
	for _, e := range entries {
		e.Sequence = len(p.History)
		p.History = append(p.History, e)
	}
}

// RecordInspection applies a completed inspection to the product.
// The entry is appended and the current condition, status and maintenance dates
// are updated in the same step so they always mirror the latest entry.
func (p *Product) RecordInspection(in Inspection) error {
	if err := in.Validate(); err != nil {
		return err
	}

	oldCondition, oldStatus := p.Condition, p.Status

	entry := in.Entry()
	entry.Sequence = len(p.History)
	p.History = append(p.History, entry)

	p.Condition = in.Condition
	p.Status = in.Status
	p.LastMaintenance = in.Date
	if !in.NextMaintenance.IsZero() {
		p.NextMaintenance = in.NextMaintenance
	}
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewConditionUpdatedEvent(p, oldCondition, oldStatus, entry))

	return nil
}

// MarkPersisted records the current version and history length as the
// state held in storage. Repositories call it after every read and write.
func (p *Product) MarkPersisted() {
	p.persistedVersion = p.Version
	p.persistedEntries = len(p.History)
}

// PersistedVersion returns the version the product had when it was loaded
func (p *Product) PersistedVersion() int {
	return p.persistedVersion
}

// PersistedEntries returns the number of history entries already stored
func (p *Product) PersistedEntries() int {
	return p.persistedEntries
}

// LatestEntry returns the most recent maintenance entry, if any
func (p *Product) LatestEntry() (MaintenanceEntry, bool) {
	if len(p.History) == 0 {
		return MaintenanceEntry{}, false
	}
	return p.History[len(p.History)-1], true
}

// Clone returns a deep copy without buffered domain events
func (p *Product) Clone() *Product {
	c := *p
	c.ClearDomainEvents()
	c.Specifications = slices.Clone(p.Specifications)
	c.History = make([]MaintenanceEntry, len(p.History))
	for i, e := range p.History {
		c.History[i] = e.clone()
	}
	return &c
}
