package inspection

import (
	"time"

	"github.com/google/uuid"
	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/inspection"
)

// DateLayout is the calendar date format used by forms and the dataset
const DateLayout = "2006-01-02"

// SpecificationResponse is one technical specification line
type SpecificationResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MaintenanceEntryResponse represents one history entry
type MaintenanceEntryResponse struct {
	ID              uuid.UUID `json:"id"`
	Date            string    `json:"date"`
	Type            string    `json:"type"`
	Inspector       string    `json:"inspector"`
	Notes           string    `json:"notes"`
	Issues          []string  `json:"issues"`
	Recommendations string    `json:"recommendations,omitempty"`
	Priority        string    `json:"priority,omitempty"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID                uuid.UUID                  `json:"id"`
	ProductID         string                     `json:"product_id"`
	Name              string                     `json:"name"`
	Category          string                     `json:"category"`
	Model             string                     `json:"model"`
	SerialNumber      string                     `json:"serial_number"`
	ManufacturingDate string                     `json:"manufacturing_date"`
	InstallationDate  string                     `json:"installation_date"`
	Warranty          string                     `json:"warranty"`
	WarrantyExpiry    string                     `json:"warranty_expiry"`
	VendorName        string                     `json:"vendor_name"`
	VendorContact     string                     `json:"vendor_contact"`
	VendorEmail       string                     `json:"vendor_email"`
	Location          string                     `json:"location"`
	LastMaintenance   string                     `json:"last_maintenance"`
	NextMaintenance   string                     `json:"next_maintenance"`
	Condition         string                     `json:"condition"`
	Status            string                     `json:"status"`
	Specifications    []SpecificationResponse    `json:"specifications"`
	History           []MaintenanceEntryResponse `json:"maintenance_history"`
	Version           int                        `json:"version"`
}

// ResolvedProductResponse is the product resolved in a session
type ResolvedProductResponse struct {
	Product         ProductResponse `json:"product"`
	ScannedLocation string          `json:"scanned_location"`
	ScannedAt       time.Time       `json:"scanned_at"`
}

// SessionResponse is the navigation state of a session
type SessionResponse struct {
	SessionID string                   `json:"session_id"`
	Location  string                   `json:"location"`
	Resolved  *ResolvedProductResponse `json:"resolved,omitempty"`
}

// ScanRequest is a manual or decoded product identifier
type ScanRequest struct {
	ProductID string `json:"product_id" form:"product_id" binding:"required,max=64"`
}

// LocationRequest carries a client-side coordinate
type LocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// ConditionUpdateRequest is the inspection form
type ConditionUpdateRequest struct {
	Condition       string   `json:"condition" form:"condition" binding:"required"`
	Status          string   `json:"status" form:"status" binding:"required"`
	MaintenanceType string   `json:"maintenance_type" form:"maintenance_type" binding:"required"`
	Inspector       string   `json:"inspector" form:"inspector" binding:"max=100"`
	InspectionDate  string   `json:"inspection_date" form:"inspection_date" binding:"omitempty,datetime=2006-01-02"`
	Notes           string   `json:"notes" form:"notes" binding:"max=2000"`
	Issues          []string `json:"issues" form:"issues"`
	Recommendations string   `json:"recommendations" form:"recommendations" binding:"max=2000"`
	NextMaintenance string   `json:"next_maintenance" form:"next_maintenance" binding:"omitempty,datetime=2006-01-02"`
	Priority        string   `json:"priority" form:"priority"`
	// SubmissionID identifies one filled-in form. A repeated ID within the
	// same session is rejected.
	SubmissionID string `json:"submission_id" form:"submission_id" binding:"max=64"`
}

// ProductListQuery narrows and orders the product listing
type ProductListQuery struct {
	Category  string `form:"category" json:"category"`
	Condition string `form:"condition" json:"condition"`
	Status    string `form:"status" json:"status"`
	Sort      string `form:"sort" json:"sort"`
	Order     string `form:"order" json:"order" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// HistoryQuery narrows a maintenance history
type HistoryQuery struct {
	Search string `form:"search" json:"search" binding:"max=200"`
	Type   string `form:"type" json:"type" binding:"max=64"`
}

// HistoryStatsResponse summarises a maintenance history
type HistoryStatsResponse struct {
	Total       int `json:"total"`
	Preventive  int `json:"preventive"`
	Repairs     int `json:"repairs"`
	Inspections int `json:"inspections"`
}

// HistoryResponse is a filtered maintenance history
type HistoryResponse struct {
	ProductID string                     `json:"product_id"`
	Name      string                     `json:"name"`
	Search    string                     `json:"search"`
	Type      string                     `json:"type"`
	Types     []string                   `json:"types"`
	Stats     HistoryStatsResponse       `json:"stats"`
	Entries   []MaintenanceEntryResponse `json:"entries"`
}

// HistoryCSVRow is one exported history line
type HistoryCSVRow struct {
	ProductID       string `csv:"product_id"`
	Date            string `csv:"date"`
	Type            string `csv:"type"`
	Inspector       string `csv:"inspector"`
	Notes           string `csv:"notes"`
	Issues          string `csv:"issues"`
	Recommendations string `csv:"recommendations"`
	Priority        string `csv:"priority"`
}

// UploadImageRequest is a photo taken during an inspection
type UploadImageRequest struct {
	ProductID string
	FileName  string
	Data      []byte
	Inspector string
}

// ImageAttachmentResponse represents a stored photo
type ImageAttachmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   string     `json:"product_id"`
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	FileSize    int64      `json:"file_size"`
	StorageKey  string     `json:"storage_key"`
	Location    string     `json:"location"`
	Inspector   string     `json:"inspector,omitempty"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	URL         string     `json:"url,omitempty"`
	URLExpires  *time.Time `json:"url_expires_at,omitempty"`
}

// UploadImageResponse confirms a stored photo with when and where it was taken
type UploadImageResponse struct {
	Attachment ImageAttachmentResponse `json:"attachment"`
	Timestamp  string                  `json:"timestamp"`
	Location   string                  `json:"location"`
	Message    string                  `json:"message"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ToProductResponse converts a domain product
func ToProductResponse(p *asset.Product) ProductResponse {
	specs := make([]SpecificationResponse, len(p.Specifications))
	for i, s := range p.Specifications {
		specs[i] = SpecificationResponse{Key: s.Key, Value: s.Value}
	}
	return ProductResponse{
		ID:                p.ID,
		ProductID:         p.Code,
		Name:              p.Name,
		Category:          p.Category,
		Model:             p.Model,
		SerialNumber:      p.SerialNumber,
		ManufacturingDate: formatDate(p.ManufacturingDate),
		InstallationDate:  formatDate(p.InstallationDate),
		Warranty:          p.Warranty,
		WarrantyExpiry:    formatDate(p.WarrantyExpiry),
		VendorName:        p.VendorName,
		VendorContact:     p.VendorContact,
		VendorEmail:       p.VendorEmail,
		Location:          p.Location,
		LastMaintenance:   formatDate(p.LastMaintenance),
		NextMaintenance:   formatDate(p.NextMaintenance),
		Condition:         p.Condition.String(),
		Status:            p.Status.String(),
		Specifications:    specs,
		History:           ToMaintenanceEntryResponses(p.History),
		Version:           p.GetVersion(),
	}
}

// ToMaintenanceEntryResponses converts history entries, keeping their order
func ToMaintenanceEntryResponses(entries []asset.MaintenanceEntry) []MaintenanceEntryResponse {
	out := make([]MaintenanceEntryResponse, len(entries))
	for i, e := range entries {
		issues := e.Issues
		if issues == nil {
			issues = []string{}
		}
		out[i] = MaintenanceEntryResponse{
			ID:              e.ID,
			Date:            formatDate(e.Date),
			Type:            e.Type,
			Inspector:       e.Inspector,
			Notes:           e.Notes,
			Issues:          issues,
			Recommendations: e.Recommendations,
			Priority:        e.Priority.String(),
		}
	}
	return out
}

// ToResolvedProductResponse converts a resolved product
func ToResolvedProductResponse(r *inspection.ResolvedProduct) *ResolvedProductResponse {
	if r == nil || r.Product == nil {
		return nil
	}
	return &ResolvedProductResponse{
		Product:         ToProductResponse(r.Product),
		ScannedLocation: r.ScannedLocation,
		ScannedAt:       r.ScannedAt,
	}
}

// ToSessionResponse converts a session
func ToSessionResponse(s *inspection.Session) *SessionResponse {
	return &SessionResponse{
		SessionID: s.ID,
		Location:  s.Location,
		Resolved:  ToResolvedProductResponse(s.Resolved),
	}
}

// ToImageAttachmentResponse converts an attachment
func ToImageAttachmentResponse(a *asset.ImageAttachment) ImageAttachmentResponse {
	return ImageAttachmentResponse{
		ID:          a.ID,
		ProductID:   a.ProductCode,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		FileSize:    a.FileSize,
		StorageKey:  a.StorageKey,
		Location:    a.Location,
		Inspector:   a.Inspector,
		UploadedAt:  a.UploadedAt,
	}
}
