package scanner

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync"
	"sync/atomic"
)

// FrameSource is an exclusive capture device. Next returns io.EOF when exhausted.
// Close may be called concurrently with Next.
type FrameSource interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// ImageFrameSource replays encoded still images as camera frames.
// Uploaded photos and test fixtures are scanned through it.
type ImageFrameSource struct {
	mu     sync.Mutex
	frames [][]byte
	next   int
	opened bool
	closed bool
	closes atomic.Int32
}

// NewImageFrameSource creates a source over PNG, JPEG or GIF encoded frames
func NewImageFrameSource(frames ...[]byte) *ImageFrameSource {
	return &ImageFrameSource{frames: frames}
}

// Open fails with ErrCameraUnavailable when there is nothing to capture
func (s *ImageFrameSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSourceClosed
	}
	if len(s.frames) == 0 {
		return ErrCameraUnavailable
	}
	s.opened = true
	return nil
}

// Next decodes the next frame
func (s *ImageFrameSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSourceClosed
	}
	if !s.opened {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: source not opened", ErrCameraUnavailable)
	}
	if s.next >= len(s.frames) {
		s.mu.Unlock()
		return nil, io.EOF
	}
	raw := s.frames[s.next]
	index := s.next
	s.next++
	s.mu.Unlock()

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w %d: %v", ErrBadFrame, index, err)
	}
	return img, nil
}

// Close releases the frames. Every call is counted.
func (s *ImageFrameSource) Close() error {
	s.closes.Add(1)
	s.mu.Lock()
	s.closed = true
	s.frames = nil
	s.mu.Unlock()
	return nil
}

// CloseCount returns how many times Close was called
func (s *ImageFrameSource) CloseCount() int {
	return int(s.closes.Load())
}
