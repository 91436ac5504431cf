package inspection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/inspection"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"github.com/railinspect/backend/internal/infrastructure/scanner"
	"github.com/railinspect/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// FrameScanner decodes QR payloads from a set of frames
type FrameScanner interface {
	Start(ctx context.Context, onPayload func(payload string)) error
	Stop()
	Done() <-chan struct{}
}

// FrameScannerFactory builds a scanner over uploaded frames
type FrameScannerFactory func(frames [][]byte) FrameScanner

// NewQRFrameScannerFactory returns a factory whose scanners decode QR codes
// and stop after the first payload.
func NewQRFrameScannerFactory(log *zap.Logger) FrameScannerFactory {
	return func(frames [][]byte) FrameScanner {
		return scanner.NewSession(
			scanner.NewImageFrameSource(frames...),
			scanner.NewQRDecoder(),
			scanner.WithStopAfterFirst(),
			scanner.WithLogger(log),
		)
	}
}

// SessionService manages the navigation state of inspector sessions.
// Transitions on one session are serialised; sessions are independent.
type SessionService struct {
	store      inspection.SessionStore
	lookup     *LookupService
	newScanner FrameScannerFactory
	metrics    Metrics
	locks      *keyedMutex
	now        func() time.Time
}

// SessionServiceOption configures a SessionService
type SessionServiceOption func(*SessionService)

// WithSessionMetrics sets the metrics sink
func WithSessionMetrics(m Metrics) SessionServiceOption {
	return func(s *SessionService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithFrameScannerFactory replaces the QR frame scanner
func WithFrameScannerFactory(f FrameScannerFactory) SessionServiceOption {
	return func(s *SessionService) {
		if f != nil {
			s.newScanner = f
		}
	}
}

// NewSessionService creates a new SessionService
func NewSessionService(store inspection.SessionStore, lookup *LookupService, opts ...SessionServiceOption) *SessionService {
	s := &SessionService{
		store:      store,
		lookup:     lookup,
		newScanner: NewQRFrameScannerFactory(zap.NewNop()),
		metrics:    nopMetrics{},
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load returns the stored session or a fresh one. Callers hold the session lock.
func (s *SessionService) load(ctx context.Context, sessionID string) (*inspection.Session, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return inspection.NewSession(sessionID), nil
		}
		return nil, err
	}
	return session, nil
}

func (s *SessionService) mutate(ctx context.Context, sessionID string, fn func(*inspection.Session) error) (*inspection.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, shared.NewDomainError("INVALID_SESSION", "Session ID is required")
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// State returns the session, empty when it was never used
func (s *SessionService) State(ctx context.Context, sessionID string) (*SessionResponse, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		session = inspection.NewSession(sessionID)
	}
	return ToSessionResponse(session), nil
}

// Resolved returns the product resolved in the session or ErrNoProductResolved
func (s *SessionService) Resolved(ctx context.Context, sessionID string) (*inspection.ResolvedProduct, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, inspection.ErrNoProductResolved
		}
		return nil, err
	}
	return session.Product()
}

// Current returns the resolved product as an API response
func (s *SessionService) Current(ctx context.Context, sessionID string) (*ResolvedProductResponse, error) {
	resolved, err := s.Resolved(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ToResolvedProductResponse(resolved), nil
}

// Scan resolves productID into the session, tagged with the session's
// last known location. An unknown identifier leaves the session unchanged
// and returns ErrProductNotFound.
func (s *SessionService) Scan(ctx context.Context, sessionID, productID, source string) (*ResolvedProductResponse, error) {
	if source == "" {
		source = ScanSourceManual
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "session", "scan",
		telemetry.SpanAttrSessionID, sessionID,
		telemetry.SpanAttrProductID, strings.TrimSpace(productID),
	)
	defer span.End()

	var resolved *inspection.ResolvedProduct
	_, err := s.mutate(ctx, sessionID, func(session *inspection.Session) error {
		product, err := s.lookup.Find(ctx, productID)
		if err != nil {
			return err
		}
		resolved = session.Resolve(product, s.now())
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrInvalidProductID) {
			s.metrics.RecordScan(source, telemetry.OutcomeNotFound)
		} else {
			telemetry.RecordError(span, err)
			s.metrics.RecordScan(source, telemetry.OutcomeFailed)
		}
		return nil, err
	}

	s.metrics.RecordScan(source, telemetry.OutcomeResolved)
	logger.L(ctx).Info("Product resolved",
		zap.String("product_id", resolved.Product.Code),
		zap.String("scan_source", source),
		zap.String("location", resolved.ScannedLocation),
	)
	return ToResolvedProductResponse(resolved), nil
}

// ScanFrames decodes the uploaded frames in order and scans the first QR
// payload found. Scanning stops after the first detection.
func (s *SessionService) ScanFrames(ctx context.Context, sessionID string, frames [][]byte) (*ResolvedProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "session", "scan_frames",
		telemetry.SpanAttrSessionID, sessionID,
		telemetry.SpanAttrFrames, len(frames),
	)
	defer span.End()

	payload, err := s.decodeFirst(ctx, frames)
	if err != nil {
		switch {
		case errors.Is(err, ErrCameraUnavailable):
			s.metrics.RecordScan(ScanSourceCamera, telemetry.OutcomeCameraUnavailable)
		case errors.Is(err, ErrNoCodeDetected):
			s.metrics.RecordScan(ScanSourceCamera, telemetry.OutcomeNoCode)
		default:
			telemetry.RecordError(span, err)
		}
		return nil, err
	}
	return s.Scan(ctx, sessionID, payload, ScanSourceCamera)
}

func (s *SessionService) decodeFirst(ctx context.Context, frames [][]byte) (string, error) {
	sc := s.newScanner(frames)

	var (
		mu      sync.Mutex
		payload string
	)
	err := sc.Start(ctx, func(p string) {
		mu.Lock()
		defer mu.Unlock()
		if payload == "" {
			payload = p
		}
	})
	if err != nil {
		if errors.Is(err, scanner.ErrCameraUnavailable) {
			return "", ErrCameraUnavailable
		}
		return "", err
	}

	select {
	case <-sc.Done():
	case <-ctx.Done():
		sc.Stop()
		return "", ctx.Err()
	}
	sc.Stop()

	mu.Lock()
	defer mu.Unlock()
	if strings.TrimSpace(payload) == "" {
		return "", ErrNoCodeDetected
	}
	return payload, nil
}

// Clear drops the resolved product, as on logout or "scan new"
func (s *SessionService) Clear(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, func(session *inspection.Session) error {
		session.Clear()
		return nil
	})
	return err
}

// SetLocation records the last known coordinate string of the session device
func (s *SessionService) SetLocation(ctx context.Context, sessionID, location string) (*SessionResponse, error) {
	session, err := s.mutate(ctx, sessionID, func(session *inspection.Session) error {
		session.SetLocation(location)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToSessionResponse(session), nil
}

// Refresh replaces the resolved snapshot after the product was updated.
// Sessions that have moved on to another product are left alone.
func (s *SessionService) Refresh(ctx context.Context, sessionID string, product *asset.Product) error {
	_, err := s.mutate(ctx, sessionID, func(session *inspection.Session) error {
		return session.Refresh(product)
	})
	if errors.Is(err, inspection.ErrNoProductResolved) || errors.Is(err, inspection.ErrProductMismatch) {
		return nil
	}
	return err
}

// Forget deletes the session state
func (s *SessionService) Forget(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.store.Delete(ctx, sessionID)
}
