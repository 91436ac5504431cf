package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/railinspect/backend/internal/domain/asset"
)

// SpecificationValue is the JSON shape of one specification pair
type SpecificationValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ProductModel is the persistence model for the Product aggregate root.
type ProductModel struct {
	AggregateModel
	Code              string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name              string `gorm:"type:varchar(200);not null"`
	Category          string `gorm:"type:varchar(100)"`
	Model             string `gorm:"type:varchar(100)"`
	SerialNumber      string `gorm:"type:varchar(100)"`
	ManufacturingDate time.Time
	InstallationDate  time.Time
	Warranty          string `gorm:"type:varchar(100)"`
	WarrantyExpiry    time.Time
	VendorName        string `gorm:"type:varchar(200)"`
	VendorContact     string `gorm:"type:varchar(100)"`
	VendorEmail       string `gorm:"type:varchar(200)"`
	Location          string `gorm:"type:varchar(200)"`
	LastMaintenance   time.Time
	NextMaintenance   time.Time
	Condition         string                  `gorm:"type:varchar(20);not null"`
	Status            string                  `gorm:"type:varchar(30);not null"`
	Specifications    []SpecificationValue    `gorm:"type:text;serializer:json"`
	Entries           []MaintenanceEntryModel `gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *asset.Product {
	p := &asset.Product{
		BaseAggregateRoot: m.AggregateModel.ToDomainAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		Category:          m.Category,
		Model:             m.Model,
		SerialNumber:      m.SerialNumber,
		ManufacturingDate: m.ManufacturingDate,
		InstallationDate:  m.InstallationDate,
		Warranty:          m.Warranty,
		WarrantyExpiry:    m.WarrantyExpiry,
		VendorName:        m.VendorName,
		VendorContact:     m.VendorContact,
		VendorEmail:       m.VendorEmail,
		Location:          m.Location,
		LastMaintenance:   m.LastMaintenance,
		NextMaintenance:   m.NextMaintenance,
		Condition:         asset.Condition(m.Condition),
		Status:            asset.Status(m.Status),
		Specifications:    make([]asset.Specification, len(m.Specifications)),
		History:           make([]asset.MaintenanceEntry, len(m.Entries)),
	}
	for i, s := range m.Specifications {
		p.Specifications[i] = asset.Specification{Key: s.Key, Value: s.Value}
	}
	for i := range m.Entries {
		p.History[i] = m.Entries[i].ToDomain()
	}
	p.MarkPersisted()
	return p
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *asset.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Code = p.Code
	m.Name = p.Name
	m.Category = p.Category
	m.Model = p.Model
	m.SerialNumber = p.SerialNumber
	m.ManufacturingDate = p.ManufacturingDate
	m.InstallationDate = p.InstallationDate
	m.Warranty = p.Warranty
	m.WarrantyExpiry = p.WarrantyExpiry
	m.VendorName = p.VendorName
	m.VendorContact = p.VendorContact
	m.VendorEmail = p.VendorEmail
	m.Location = p.Location
	m.LastMaintenance = p.LastMaintenance
	m.NextMaintenance = p.NextMaintenance
	m.Condition = string(p.Condition)
	m.Status = string(p.Status)
	m.Specifications = make([]SpecificationValue, len(p.Specifications))
	for i, s := range p.Specifications {
		m.Specifications[i] = SpecificationValue{Key: s.Key, Value: s.Value}
	}
	m.Entries = make([]MaintenanceEntryModel, len(p.History))
	for i, e := range p.History {
		m.Entries[i] = *MaintenanceEntryModelFromDomain(p.ID, e)
	}
}

// ProductModelFromDomain creates a new persistence model from a domain Product
func ProductModelFromDomain(p *asset.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// MaintenanceEntryModel is the persistence model for one history entry.
// (product_id, sequence) is unique so concurrent appends cannot interleave.
type MaintenanceEntryModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_entry_product_seq,priority:1"`
	Sequence        int       `gorm:"not null;uniqueIndex:idx_entry_product_seq,priority:2"`
	Date            time.Time `gorm:"not null"`
	Type            string    `gorm:"type:varchar(64);not null;index"`
	Inspector       string    `gorm:"type:varchar(100)"`
	Notes           string    `gorm:"type:text"`
	Issues          []string  `gorm:"type:text;serializer:json"`
	Recommendations string    `gorm:"type:text"`
	Priority        string    `gorm:"type:varchar(20)"`
	CreatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MaintenanceEntryModel) TableName() string {
	return "maintenance_entries"
}

// ToDomain converts the persistence model to a domain MaintenanceEntry
func (m *MaintenanceEntryModel) ToDomain() asset.MaintenanceEntry {
	issues := m.Issues
	if issues == nil {
		issues = []string{}
	}
	return asset.MaintenanceEntry{
		ID:              m.ID,
		Sequence:        m.Sequence,
		Date:            m.Date,
		Type:            m.Type,
		Inspector:       m.Inspector,
		Notes:           m.Notes,
		Issues:          issues,
		Recommendations: m.Recommendations,
		Priority:        asset.Priority(m.Priority),
	}
}

// MaintenanceEntryModelFromDomain creates a persistence model for an entry.
// Imported entries without an ID get one here.
func MaintenanceEntryModelFromDomain(productID uuid.UUID, e asset.MaintenanceEntry) *MaintenanceEntryModel {
	id := e.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &MaintenanceEntryModel{
		ID:              id,
		ProductID:       productID,
		Sequence:        e.Sequence,
		Date:            e.Date,
		Type:            e.Type,
		Inspector:       e.Inspector,
		Notes:           e.Notes,
		Issues:          e.Issues,
		Recommendations: e.Recommendations,
		Priority:        string(e.Priority),
		CreatedAt:       time.Now(),
	}
}

// ImageAttachmentModel is the persistence model for an inspection photo
type ImageAttachmentModel struct {
	BaseModel
	ProductCode string    `gorm:"type:varchar(64);not null;index"`
	FileName    string    `gorm:"type:varchar(255);not null"`
	ContentType string    `gorm:"type:varchar(100);not null"`
	FileSize    int64     `gorm:"not null"`
	StorageKey  string    `gorm:"type:varchar(500);not null;uniqueIndex"`
	Location    string    `gorm:"type:varchar(100)"`
	Inspector   string    `gorm:"type:varchar(100)"`
	UploadedAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ImageAttachmentModel) TableName() string {
	return "image_attachments"
}

// ToDomain converts the persistence model to a domain ImageAttachment
func (m *ImageAttachmentModel) ToDomain() *asset.ImageAttachment {
	return &asset.ImageAttachment{
		BaseEntity:  m.BaseModel.ToDomain(),
		ProductCode: m.ProductCode,
		FileName:    m.FileName,
		ContentType: m.ContentType,
		FileSize:    m.FileSize,
		StorageKey:  m.StorageKey,
		Location:    m.Location,
		Inspector:   m.Inspector,
		UploadedAt:  m.UploadedAt,
	}
}

// ImageAttachmentModelFromDomain creates a persistence model from a domain ImageAttachment
func ImageAttachmentModelFromDomain(a *asset.ImageAttachment) *ImageAttachmentModel {
	m := &ImageAttachmentModel{
		ProductCode: a.ProductCode,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		FileSize:    a.FileSize,
		StorageKey:  a.StorageKey,
		Location:    a.Location,
		Inspector:   a.Inspector,
		UploadedAt:  a.UploadedAt,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}
