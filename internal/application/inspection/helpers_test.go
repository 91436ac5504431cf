package inspection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/infrastructure/cache"
	"github.com/railinspect/backend/internal/infrastructure/config"
	"github.com/railinspect/backend/internal/infrastructure/dataset"
	"github.com/railinspect/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db          *persistence.Database
	products    *persistence.GormProductRepository
	attachments *persistence.GormAttachmentRepository
	store       *cache.InMemorySessionStore
	lookup      *LookupService
	sessions    *SessionService
	metrics     *recordingMetrics
	publisher   *recordingPublisher
	storage     *fakeStorage
}

// newTestEnv seeds the bundled dataset into an in-memory sqlite database
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { _ = db.Close() })

	products := persistence.NewGormProductRepository(db.DB)
	seed, err := dataset.Parse(dataset.Bundled())
	require.NoError(t, err)
	_, err = dataset.Seed(ctx, products, seed, nil)
	require.NoError(t, err)

	store := cache.NewInMemorySessionStore(time.Hour, 0)
	t.Cleanup(func() { _ = store.Close() })

	metrics := &recordingMetrics{}
	lookup := NewLookupService(products)
	return &testEnv{
		db:          db,
		products:    products,
		attachments: persistence.NewGormAttachmentRepository(db.DB),
		store:       store,
		lookup:      lookup,
		sessions:    NewSessionService(store, lookup, WithSessionMetrics(metrics)),
		metrics:     metrics,
		publisher:   &recordingPublisher{},
		storage:     newFakeStorage(),
	}
}

type recordingMetrics struct {
	mu          sync.Mutex
	scans       []string
	submissions []string
	uploads     []string
}

func (m *recordingMetrics) RecordScan(source, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans = append(m.scans, source+":"+outcome)
}

func (m *recordingMetrics) RecordSubmission(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, outcome)
}

func (m *recordingMetrics) RecordUpload(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, outcome)
}

func (m *recordingMetrics) Submissions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.submissions...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) PutObject(_ context.Context, key, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("empty key")
	}
	return "https://photos.example/" + key, time.Now().Add(expiresIn), nil
}

func (s *fakeStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
