package scanner

import "errors"

var (
	// ErrCameraUnavailable is returned when the frame source cannot be opened
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrNoCode is returned when a frame contains no decodable QR code
	ErrNoCode = errors.New("no QR code detected")

	// ErrBadFrame marks a single unreadable frame; scanning continues with the next one
	ErrBadFrame = errors.New("unreadable frame")

	// ErrSourceClosed is returned by a frame source after Close
	ErrSourceClosed = errors.New("frame source closed")

	// ErrAlreadyStarted is returned when Start is called twice on a session
	ErrAlreadyStarted = errors.New("scan session already started")

	// ErrSessionStopped is returned when Start is called after Stop
	ErrSessionStopped = errors.New("scan session stopped")
)
