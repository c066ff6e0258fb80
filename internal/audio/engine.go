package audio

import (
	"context"
	"errors"
)

var (
	// ErrCapture covers failures starting or finalising a recording.
	ErrCapture = errors.New("capture error")
	// ErrPlayback covers failures loading or driving a playback stream.
	ErrPlayback = errors.New("playback error")
	// ErrPayloadMissing is returned when a note's audio file does not exist.
	ErrPayloadMissing = errors.New("audio payload missing")
)

// Quality is a capture preset.
type Quality string

const (
	QualityHigh Quality = "high"
	QualityLow  Quality = "low"
)

// Status is a periodic report from a loaded stream.
type Status struct {
	PositionMillis int64
	DurationMillis int64
	IsPlaying      bool
	DidFinish      bool
}

// Engine is the host's media subsystem: microphone permission, capture and
// single-file playback.
type Engine interface {
	PermissionGranted(ctx context.Context) (bool, error)
	RequestPermission(ctx context.Context) (bool, error)

	// SetCaptureMode switches the audio session between capture and
	// playback configuration.
	SetCaptureMode(ctx context.Context, enabled bool) error

	StartCapture(ctx context.Context, quality Quality) (Capture, error)

	// LoadPlayable prepares uri for playback without starting it. onStatus
	// is called from the engine's own goroutine, never from inside an
	// Engine or Stream method.
	LoadPlayable(ctx context.Context, uri string, onStatus func(Status)) (Stream, error)
}

// Capture is a running recording.
type Capture interface {
	// StopAndFinalize ends the recording and returns the payload location.
	StopAndFinalize(ctx context.Context) (string, error)
}

// Stream is a loaded playable payload.
type Stream interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SeekTo(ctx context.Context, positionMillis int64) error
	Stop(ctx context.Context) error
	// DurationMillis is the payload length, or 0 when it is not known yet.
	DurationMillis() int64
	// Unload releases the stream. A status already in flight may still be
	// delivered once; callers must ignore it.
	Unload(ctx context.Context) error
}
