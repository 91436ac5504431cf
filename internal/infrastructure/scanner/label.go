package scanner

import (
	"errors"
	"strings"

	qrgen "github.com/skip2/go-qrcode"
)

// DefaultLabelSize is the edge length in pixels of generated labels
const DefaultLabelSize = 256

// GenerateLabel renders a PNG QR code encoding the product identifier
func GenerateLabel(productID string, size int) ([]byte, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, errors.New("product id is required")
	}
	if size <= 0 {
		size = DefaultLabelSize
	}
	return qrgen.Encode(productID, qrgen.Medium, size)
}
