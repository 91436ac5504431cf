package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "ASC"},
		{"asc lowercase", "asc", "ASC"},
		{"desc with whitespace", "  desc ", "DESC"},
		{"invalid value returns default", "sideways", "ASC"},
		{"sql injection attempt returns default", "ASC; DROP TABLE products;--", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input, "ASC"))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "code"},
		{"public key maps to column", "product_id", "code"},
		{"same-named column", "next_maintenance", "next_maintenance"},
		{"trimmed", " status ", "status"},
		{"column name is not a key", "code", "code"},
		{"unknown field returns default", "serial_number", "code"},
		{"injection attempt returns default", "name; DROP TABLE products", "code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, ProductSortFields, "code"))
		})
	}
}
