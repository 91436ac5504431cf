package handler

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestProductHandler_Get(t *testing.T) {
	env := newTestEnv(t)

	t.Run("known product", func(t *testing.T) {
		w := env.get("/api/v1/products/PROD001")

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "Electric Point Machine", data["name"])
		assert.Equal(t, "Good", data["condition"])
		assert.Equal(t, "Operational", data["status"])
		assert.Len(t, data["maintenance_history"], 3)
	})

	t.Run("unknown product", func(t *testing.T) {
		w := env.get("/api/v1/products/PROD999")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "PRODUCT_NOT_FOUND", errorCode(t, w))
	})
}

func TestProductHandler_List(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/api/v1/products")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	products := resp.Data.([]any)
	require.Len(t, products, 4)
	assert.Equal(t, "PROD001", products[0].(map[string]any)["product_id"])

	t.Run("filtered and sorted", func(t *testing.T) {
		w := env.get("/api/v1/products?status=Operational&sort=name&order=desc")

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		products := decodeResponse(t, w).Data.([]any)
		require.Len(t, products, 2)
		assert.Equal(t, "PROD003", products[0].(map[string]any)["product_id"])
	})

	t.Run("unknown condition", func(t *testing.T) {
		w := env.get("/api/v1/products?condition=Broken")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_CONDITION", errorCode(t, w))
	})

	t.Run("bad order", func(t *testing.T) {
		w := env.get("/api/v1/products?order=sideways")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "ERR_VALIDATION", errorCode(t, w))
	})
}

func TestProductHandler_History(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		query      string
		inspectors []string
	}{
		{"all entries in order", "", []string{"Meera Nair", "Rohit", "Anil Kumar"}},
		{"by type", "?type=Repair", []string{"Rohit"}},
		{"search is case insensitive", "?search=meera", []string{"Meera Nair"}},
		{"type without matches", "?type=Calibration", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get("/api/v1/products/PROD001/history" + tt.query)

			require.Equal(t, http.StatusOK, w.Code)
			data := decodeData(t, w)
			entries := data["entries"].([]any)
			got := make([]string, 0, len(entries))
			for _, e := range entries {
				got = append(got, e.(map[string]any)["inspector"].(string))
			}
			assert.Equal(t, tt.inspectors, got)

			stats := data["stats"].(map[string]any)
			assert.EqualValues(t, 3, stats["total"])
		})
	}

	t.Run("oversized search", func(t *testing.T) {
		w := env.get("/api/v1/products/PROD001/history?search=" + strings.Repeat("x", 201))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "ERR_VALIDATION", errorCode(t, w))
	})
}

func TestProductHandler_ExportHistory(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/api/v1/products/PROD001/history.csv?type=Inspection")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="PROD001-history.csv"`)

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "product_id,date,type,inspector"))
	assert.Contains(t, lines[1], "Meera Nair")

	t.Run("unknown product", func(t *testing.T) {
		w := env.get("/api/v1/products/PROD999/history.csv")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProductHandler_Label(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/api/v1/products/PROD003/qr?size=128")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), pngMagic))

	// The label scans back to the product
	env.postMultipart(t, "/api/v1/session/scan/frames", nil, upload{field: "frames", name: "qr.png", data: w.Body.Bytes()})
	state := decodeData(t, env.get("/api/v1/session"))
	resolved := state["resolved"].(map[string]any)
	assert.Equal(t, "PROD003", resolved["product"].(map[string]any)["product_id"])

	t.Run("size out of range", func(t *testing.T) {
		w := env.get("/api/v1/products/PROD003/qr?size=5000")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown product", func(t *testing.T) {
		w := env.get("/api/v1/products/PROD999/qr")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProductHandler_UploadImage(t *testing.T) {
	t.Run("requires a resolved product", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.postMultipart(t, "/api/v1/products/PROD001/images", nil,
			upload{field: "image", name: "photo.png", data: blankPNG(t)})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "NO_PRODUCT_RESOLVED", errorCode(t, w))
		assert.Zero(t, env.storage.Len())
	})

	t.Run("stores the photo with time and location", func(t *testing.T) {
		env := newTestEnv(t)
		env.sendJSON(http.MethodPut, "/api/v1/session/location", map[string]float64{"latitude": 12.9716, "longitude": 77.5946})
		env.resolve(t, "PROD001")

		w := env.postMultipart(t, "/api/v1/products/PROD001/images",
			map[string]string{"inspector": "Meera Nair"},
			upload{field: "image", name: "photo.png", data: blankPNG(t)})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		data := decodeData(t, w)
		assert.Equal(t, "12.971600, 77.594600", data["location"])
		assert.Contains(t, data["message"], "Image uploaded successfully!")
		attachment := data["attachment"].(map[string]any)
		assert.Equal(t, "image/png", attachment["content_type"])
		assert.Equal(t, "Meera Nair", attachment["inspector"])
		assert.True(t, strings.HasPrefix(attachment["storage_key"].(string), "products/PROD001/images/"))
		assert.Equal(t, 1, env.storage.Len())

		list := decodeResponse(t, env.get("/api/v1/products/PROD001/images"))
		assert.Len(t, list.Data, 1)
	})

	t.Run("product mismatch", func(t *testing.T) {
		env := newTestEnv(t)
		env.resolve(t, "PROD001")

		w := env.postMultipart(t, "/api/v1/products/PROD002/images", nil,
			upload{field: "image", name: "photo.png", data: blankPNG(t)})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "PRODUCT_MISMATCH", errorCode(t, w))
	})

	t.Run("missing file", func(t *testing.T) {
		env := newTestEnv(t)
		env.resolve(t, "PROD001")

		w := env.postMultipart(t, "/api/v1/products/PROD001/images", map[string]string{"inspector": "x"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "IMAGE_REQUIRED", errorCode(t, w))
	})

	t.Run("not an image", func(t *testing.T) {
		env := newTestEnv(t)
		env.resolve(t, "PROD001")

		w := env.postMultipart(t, "/api/v1/products/PROD001/images", nil,
			upload{field: "image", name: "notes.png", data: []byte("plain text pretending to be a photo")})

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		assert.Equal(t, "INVALID_CONTENT_TYPE", errorCode(t, w))
	})

	t.Run("too large", func(t *testing.T) {
		env := newTestEnv(t, withMaxImageSize(16))
		env.resolve(t, "PROD001")

		w := env.postMultipart(t, "/api/v1/products/PROD001/images", nil,
			upload{field: "image", name: "photo.png", data: blankPNG(t)})

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "FILE_TOO_LARGE", errorCode(t, w))
	})
}
