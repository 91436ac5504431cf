package inspection

import (
	"context"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/railinspect/backend/internal/domain/asset"
)

// HistoryService filters and exports maintenance histories
type HistoryService struct {
	lookup *LookupService
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(lookup *LookupService) *HistoryService {
	return &HistoryService{lookup: lookup}
}

// History loads the product and filters its history
func (s *HistoryService) History(ctx context.Context, productID string, q HistoryQuery) (*HistoryResponse, error) {
	product, err := s.lookup.Find(ctx, productID)
	if err != nil {
		return nil, err
	}
	return BuildHistory(product, q), nil
}

// BuildHistory filters the product history by q. Statistics and the type
// list describe the full history; entries keep their original order.
func BuildHistory(p *asset.Product, q HistoryQuery) *HistoryResponse {
	filter := asset.HistoryFilter{Search: q.Search, Type: q.Type}
	stats := asset.ComputeStats(p.History)

	typ := q.Type
	if typ == "" {
		typ = asset.FilterAll
	}
	return &HistoryResponse{
		ProductID: p.Code,
		Name:      p.Name,
		Search:    q.Search,
		Type:      typ,
		Types:     asset.MaintenanceTypes(p.History),
		Stats: HistoryStatsResponse{
			Total:       stats.Total,
			Preventive:  stats.Preventive,
			Repairs:     stats.Repairs,
			Inspections: stats.Inspections,
		},
		Entries: ToMaintenanceEntryResponses(filter.Apply(p.History)),
	}
}

// ExportCSV writes the filtered history of the product as CSV
func (s *HistoryService) ExportCSV(ctx context.Context, productID string, q HistoryQuery, w io.Writer) error {
	product, err := s.lookup.Find(ctx, productID)
	if err != nil {
		return err
	}
	filtered := asset.HistoryFilter{Search: q.Search, Type: q.Type}.Apply(product.History)

	rows := make([]*HistoryCSVRow, len(filtered))
	for i, e := range filtered {
		rows[i] = &HistoryCSVRow{
			ProductID:       product.Code,
			Date:            formatDate(e.Date),
			Type:            e.Type,
			Inspector:       e.Inspector,
			Notes:           e.Notes,
			Issues:          strings.Join(e.Issues, "; "),
			Recommendations: e.Recommendations,
			Priority:        e.Priority.String(),
		}
	}
	return gocsv.Marshal(rows, w)
}
