package storage

import (
	"context"
	"testing"
	"time"

	"github.com/railinspect/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryObjectStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryObjectStorage()
	key := "products/PROD001/images/1.png"

	data := []byte{0x89, 'P', 'N', 'G'}
	require.NoError(t, s.PutObject(ctx, key, "image/png", data))
	data[0] = 0

	got, contentType, ok := s.GetObject(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, byte(0x89), got[0], "stored bytes are copied")

	exists, err := s.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	url, _, err := s.GenerateDownloadURL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "memory://inspection-photos/products/PROD001/images/1.png", url)

	require.NoError(t, s.DeleteObject(ctx, key))
	exists, err = s.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 0, s.Len())

	assert.Error(t, s.PutObject(ctx, "", "image/png", data))
}

func TestMemoryObjectStorage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryObjectStorage()
	err := s.PutObject(ctx, "k", "image/png", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewObjectStorage(t *testing.T) {
	t.Run("memory by default", func(t *testing.T) {
		s, err := NewObjectStorage(context.Background(), &config.StorageConfig{}, nil)
		require.NoError(t, err)
		assert.IsType(t, &MemoryObjectStorage{}, s)
	})

	t.Run("s3 backend", func(t *testing.T) {
		s, err := NewObjectStorage(context.Background(), validS3Config(), nil)
		require.NoError(t, err)
		assert.IsType(t, &S3ObjectStorage{}, s)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewObjectStorage(context.Background(), &config.StorageConfig{Type: "ftp"}, nil)
		assert.Error(t, err)
	})
}
