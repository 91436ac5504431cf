package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/interfaces/http/dto"
)

func fileTooLarge(limit int64) error {
	return shared.NewDomainError(dto.ErrCodeFileTooLarge,
		fmt.Sprintf("File exceeds the maximum upload size of %d bytes", limit))
}

// readFormFile reads an uploaded file, rejecting anything above limit bytes
func readFormFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if limit > 0 && fh.Size > limit {
		return nil, fileTooLarge(limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	r := io.Reader(f)
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fileTooLarge(limit)
	}
	return data, nil
}

// formFile returns the named upload, or nil when the field is missing
func formFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, shared.NewDomainError(dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
		}
		return nil, err
	}
	return fh, nil
}
