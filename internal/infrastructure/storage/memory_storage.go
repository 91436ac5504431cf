package storage

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	inspectionapp "github.com/railinspect/backend/internal/application/inspection"
)

var _ inspectionapp.ObjectStorage = (*MemoryObjectStorage)(nil)

// MemoryObjectStorage keeps photos in process memory.
// Used in development and tests when no S3 endpoint is configured.
type MemoryObjectStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	// BaseURL prefixes generated download URLs
	BaseURL string
}

type memoryObject struct {
	contentType string
	data        []byte
}

// NewMemoryObjectStorage creates an empty MemoryObjectStorage
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		objects: make(map[string]memoryObject),
		BaseURL: "memory://inspection-photos",
	}
}

// PutObject stores a copy of data under storageKey
func (s *MemoryObjectStorage) PutObject(ctx context.Context, storageKey, contentType string, data []byte) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[storageKey] = memoryObject{contentType: contentType, data: buf}
	s.mu.Unlock()
	return nil
}

// GetObject returns the stored bytes and content type
func (s *MemoryObjectStorage) GetObject(ctx context.Context, storageKey string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[storageKey]
	if !ok {
		return nil, "", false
	}
	return obj.data, obj.contentType, true
}

// GenerateDownloadURL returns a non-expiring pseudo URL
func (s *MemoryObjectStorage) GenerateDownloadURL(
	ctx context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	u, err := url.JoinPath(s.BaseURL, storageKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return u, time.Now().Add(expiresIn), nil
}

// DeleteObject removes storageKey. Missing keys are not an error.
func (s *MemoryObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	delete(s.objects, storageKey)
	s.mu.Unlock()
	return nil
}

// ObjectExists reports whether storageKey is present
func (s *MemoryObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}
	s.mu.RLock()
	_, ok := s.objects[storageKey]
	s.mu.RUnlock()
	return ok, nil
}

// Len returns the number of stored objects
func (s *MemoryObjectStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
