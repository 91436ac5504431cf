// Package scanner turns camera frames into product identifiers and renders QR labels.
package scanner

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Session continuously decodes frames from an exclusive source.
// The source is released exactly once, whichever of Stop, context
// cancellation or source exhaustion comes first.
type Session struct {
	source         FrameSource
	decoder        Decoder
	logger         *zap.Logger
	frameInterval  time.Duration
	stopAfterFirst bool

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	err     error

	done        chan struct{}
	doneOnce    sync.Once
	releaseOnce sync.Once
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithFrameInterval throttles decoding between frames
func WithFrameInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		s.frameInterval = d
	}
}

// WithStopAfterFirst ends scanning after the first decoded payload
func WithStopAfterFirst() SessionOption {
	return func(s *Session) {
		s.stopAfterFirst = true
	}
}

// NewSession creates a scan session over source
func NewSession(source FrameSource, decoder Decoder, opts ...SessionOption) *Session {
	s := &Session{
		source:  source,
		decoder: decoder,
		logger:  zap.NewNop(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the source and decodes frames on a background goroutine,
// calling onPayload once per decoded payload. onPayload may call Stop.
func (s *Session) Start(ctx context.Context, onPayload func(payload string)) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSessionStopped
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true

	if err := s.source.Open(ctx); err != nil {
		s.stopped = true
		s.mu.Unlock()
		s.finish()
		if !errors.Is(err, ErrCameraUnavailable) {
			err = errors.Join(ErrCameraUnavailable, err)
		}
		s.setErr(err)
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Debug("scan session started")
	go s.loop(loopCtx, onPayload)
	return nil
}

// Stop cancels scanning and releases the source. It never blocks on the
// decode loop, so it is safe to call from onPayload, repeatedly or concurrently.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopped = true
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started && cancel != nil {
		s.release()
		return
	}
	// Never started or failed to open: nothing was acquired
	s.finish()
}

// Done is closed when the decode loop has exited
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the loop exits or ctx ends
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the error that ended scanning, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) loop(ctx context.Context, onPayload func(string)) {
	defer s.finish()
	defer s.release()

	for {
		if ctx.Err() != nil {
			return
		}

		img, err := s.source.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			s.logger.Debug("frame source exhausted")
			return
		case errors.Is(err, ErrBadFrame):
			s.logger.Warn("skipping unreadable frame", zap.Error(err))
			continue
		case ctx.Err() != nil, errors.Is(err, ErrSourceClosed):
			return
		default:
			s.setErr(err)
			s.logger.Error("frame capture failed", zap.Error(err))
			return
		}

		payload, err := s.decoder.Decode(img)
		if err != nil {
			if !errors.Is(err, ErrNoCode) && !errors.Is(err, ErrBadFrame) {
				s.logger.Warn("frame decode failed", zap.Error(err))
			}
		} else {
			s.logger.Debug("QR payload decoded", zap.String("payload", payload))
			onPayload(payload)
			if s.stopAfterFirst {
				return
			}
		}

		if s.frameInterval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.frameInterval):
			}
		}
	}
}

func (s *Session) release() {
	s.releaseOnce.Do(func() {
		if err := s.source.Close(); err != nil {
			s.logger.Warn("failed to release frame source", zap.Error(err))
		}
		s.logger.Debug("frame source released")
	})
}

func (s *Session) finish() {
	s.doneOnce.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		close(s.done)
	})
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}
