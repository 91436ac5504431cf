package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, returning
// defaultDir for anything else
func ValidateSortOrder(orderDir, defaultDir string) string {
	switch strings.ToUpper(strings.TrimSpace(orderDir)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	return defaultDir
}

// ValidateSortField resolves a public sort field to its column through the
// whitelist. Unknown or empty fields resolve to defaultColumn.
func ValidateSortField(sortField string, allowedFields map[string]string, defaultColumn string) string {
	if column, ok := allowedFields[strings.TrimSpace(sortField)]; ok {
		return column
	}
	return defaultColumn
}

// ProductSortFields maps the product listing's sort keys to columns
var ProductSortFields = map[string]string{
	"product_id":       "code",
	"name":             "name",
	"category":         "category",
	"condition":        "condition",
	"status":           "status",
	"last_maintenance": "last_maintenance",
	"next_maintenance": "next_maintenance",
}
