package scanner

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
)

// Decoder extracts a text payload from a frame
type Decoder interface {
	Decode(img image.Image) (string, error)
}

// QRDecoder decodes QR codes with gozxing
type QRDecoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewQRDecoder creates a decoder that tries hard on low-quality frames
func NewQRDecoder() *QRDecoder {
	return &QRDecoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode returns the trimmed QR payload or ErrNoCode
func (d *QRDecoder) Decode(img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("nil frame")
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadFrame, err)
	}

	// QRCodeReader keeps per-decode state, so each call gets its own reader
	result, err := zxqr.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}

	text := strings.TrimSpace(result.GetText())
	if text == "" {
		return "", ErrNoCode
	}
	return text, nil
}
