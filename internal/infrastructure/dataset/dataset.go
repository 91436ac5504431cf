// Package dataset loads the bundled product dataset and seeds it into storage.
//
// The dataset is a JSON object keyed by product identifier; each value carries
// the camelCase product fields plus a maintenanceHistory array.
package dataset

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/railinspect/backend/internal/domain/asset"
)

//go:embed products.json
var bundled []byte

// Bundled returns the raw dataset compiled into the binary
func Bundled() []byte {
	return bundled
}

// ErrEmptyDataset is returned when the dataset contains no products
var ErrEmptyDataset = errors.New("dataset contains no products")

// RecordError describes a problem with one product in the dataset
type RecordError struct {
	Key     string `json:"key"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e RecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("product %q, field %q: %s", e.Key, e.Field, e.Message)
	}
	return fmt.Sprintf("product %q: %s", e.Key, e.Message)
}

type productRecord struct {
	ProductID          string          `json:"productId"`
	ProductName        string          `json:"productName"`
	Category           string          `json:"category"`
	Model              string          `json:"model"`
	SerialNumber       string          `json:"serialNumber"`
	Mfg                string          `json:"mfg"`
	InstallationDate   string          `json:"installationDate"`
	Warranty           string          `json:"warranty"`
	WarrantyExpiry     string          `json:"warrantyExpiry"`
	VendorName         string          `json:"vendorName"`
	VendorContact      string          `json:"vendorContact"`
	VendorEmail        string          `json:"vendorEmail"`
	Location           string          `json:"location"`
	LastMaintenance    string          `json:"lastMaintenance"`
	NextMaintenance    string          `json:"nextMaintenance"`
	Condition          string          `json:"condition"`
	Status             string          `json:"status"`
	Specifications     map[string]any  `json:"specifications"`
	MaintenanceHistory []historyRecord `json:"maintenanceHistory"`
}

type historyRecord struct {
	Date            string   `json:"date"`
	Type            string   `json:"type"`
	Inspector       string   `json:"inspector"`
	Notes           string   `json:"notes"`
	Issues          []string `json:"issues"`
	Recommendations string   `json:"recommendations"`
	Priority        string   `json:"priority"`
}

// LoadFile reads a dataset from path, or the bundled dataset when path is empty
func LoadFile(path string) ([]*asset.Product, error) {
	if path == "" {
		return Parse(bundled)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a dataset from r
func Load(r io.Reader) ([]*asset.Product, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Parse(data)
}

// Parse decodes a dataset. Products are returned ordered by identifier; every
// invalid record is reported and none are returned when any record fails.
func Parse(data []byte) ([]*asset.Product, error) {
	var records map[string]productRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	products := make([]*asset.Product, 0, len(keys))
	var errs []error
	for _, key := range keys {
		p, recErrs := convert(key, records[key])
		if len(recErrs) > 0 {
			errs = append(errs, recErrs...)
			continue
		}
		products = append(products, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return products, nil
}

func convert(key string, rec productRecord) (*asset.Product, []error) {
	var errs []error
	fail := func(field, msg string) {
		errs = append(errs, RecordError{Key: key, Field: field, Message: msg})
	}

	code := rec.ProductID
	if code == "" {
		code = key
	}
	if strings.TrimSpace(code) != strings.TrimSpace(key) {
		fail("productId", "does not match the dataset key")
	}

	p, err := asset.NewProduct(code, rec.ProductName)
	if err != nil {
		fail("productName", err.Error())
		return nil, errs
	}

	date := func(field, value string) time.Time {
		if strings.TrimSpace(value) == "" {
			return time.Time{}
		}
		t, err := dateparse.ParseIn(value, time.UTC)
		if err != nil {
			fail(field, "unrecognised date "+value)
			return time.Time{}
		}
		return t
	}

	p.Category = rec.Category
	p.Model = rec.Model
	p.SerialNumber = rec.SerialNumber
	p.ManufacturingDate = date("mfg", rec.Mfg)
	p.InstallationDate = date("installationDate", rec.InstallationDate)
	p.Warranty = rec.Warranty
	p.WarrantyExpiry = date("warrantyExpiry", rec.WarrantyExpiry)
	p.VendorName = rec.VendorName
	p.VendorContact = rec.VendorContact
	p.VendorEmail = rec.VendorEmail
	p.Location = rec.Location
	p.LastMaintenance = date("lastMaintenance", rec.LastMaintenance)
	p.NextMaintenance = date("nextMaintenance", rec.NextMaintenance)
	p.Condition = asset.Condition(rec.Condition)
	p.Status = asset.Status(rec.Status)

	specs := make(map[string]string, len(rec.Specifications))
	for k, v := range rec.Specifications {
		specs[k] = fmt.Sprint(v)
	}
	p.SetSpecifications(specs)

	for i, h := range rec.MaintenanceHistory {
		field := fmt.Sprintf("maintenanceHistory[%d]", i)
		if strings.TrimSpace(h.Type) == "" {
			fail(field+".type", "is required")
		}
		p.AppendHistory(asset.MaintenanceEntry{
			Date:            date(field+".date", h.Date),
			Type:            h.Type,
			Inspector:       h.Inspector,
			Notes:           h.Notes,
			Issues:          asset.NormalizeIssues(h.Issues),
			Recommendations: h.Recommendations,
			Priority:        asset.Priority(h.Priority),
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}
