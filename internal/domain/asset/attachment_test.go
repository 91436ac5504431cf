package asset

import (
	"testing"

	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageAttachment(t *testing.T) {
	t.Run("creates attachment", func(t *testing.T) {
		a, err := NewImageAttachment("PROD001", "photo.JPG", "IMAGE/JPEG", 1024, DefaultMaxImageSize,
			"products/PROD001/images/abc.jpg", "12.971600, 77.594600")
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", a.ContentType)
		assert.Equal(t, a.CreatedAt, a.UploadedAt)
		assert.NotEmpty(t, a.ID)
	})

	cases := []struct {
		name        string
		fileName    string
		contentType string
		size        int64
		code        string
	}{
		{"non image", "doc.pdf", "application/pdf", 10, "INVALID_CONTENT_TYPE"},
		{"empty file", "a.png", "image/png", 0, "INVALID_FILE_SIZE"},
		{"too large", "a.png", "image/png", DefaultMaxImageSize + 1, "FILE_TOO_LARGE"},
		{"missing name", " ", "image/png", 10, "INVALID_FILE_NAME"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewImageAttachment("PROD001", tc.fileName, tc.contentType, tc.size, DefaultMaxImageSize, "key", "")
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tc.code, domainErr.Code)
		})
	}
}
