package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railinspect/backend/internal/interfaces/http/dto"
)

// uploadFormOverhead leaves room for multipart headers and form fields
const uploadFormOverhead = 1 << 20

// UploadBodyLimit returns the body limit for routes that accept up to frames
// images of at most maxImageSize bytes each.
func UploadBodyLimit(maxImageSize int64, frames int) int64 {
	if frames < 1 {
		frames = 1
	}
	return maxImageSize*int64(frames) + uploadFormOverhead
}

// BodyLimit returns a middleware that limits request body size
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				c.GetString("request_id"),
			))
			return
		}

		// Wrap the body with a limited reader for streaming requests
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
