package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/audiolibrelab/voicejournal/internal/audio"
	"github.com/audiolibrelab/voicejournal/internal/notes"
	"github.com/audiolibrelab/voicejournal/internal/storage"
)

var (
	// ErrPermissionDenied is returned when microphone access is declined.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrInvalidTransition is returned when an operation does not apply to
	// the current state, e.g. stopping a recording that never started.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("controller closed")
)

const (
	DefaultSkipMillis   = 10_000
	DefaultTickInterval = time.Second
)

// NoteStore is the part of the note store the controller needs to file a
// finished recording.
type NoteStore interface {
	List(ctx context.Context) []notes.VoiceNote
	Save(ctx context.Context, note notes.VoiceNote) ([]notes.VoiceNote, error)
}

// Ticker drives the recording elapsed counter.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Options tunes a Controller. Zero values select the defaults.
type Options struct {
	Quality      audio.Quality
	SkipMillis   int64
	TickInterval time.Duration
	NewTicker    func(time.Duration) Ticker
	Now          func() time.Time
	NewID        func() string
	// Files removes a finished recording that could not be saved.
	Files        storage.Files
}

type recordingSession struct {
	capture audio.Capture
	ticker  Ticker
	done    chan struct{}
	elapsed int64
}

type playbackSession struct {
	noteID   string
	stream   audio.Stream
	position int64
	duration int64
	paused   bool
}

// Controller owns the single recording session and the single playback
// session. All transitions run under one mutex, including the blocking
// engine calls, so two transitions never interleave.
type Controller struct {
	engine audio.Engine
	store  NoteStore
	files  storage.Files

	quality      audio.Quality
	skip         int64
	tickInterval time.Duration
	newTicker    func(time.Duration) Ticker
	now          func() time.Time
	newID        func() string

	mu      sync.Mutex
	state   State
	rec     *recordingSession
	play    *playbackSession
	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
}

// New creates an idle controller.
func New(engine audio.Engine, store NoteStore, opts Options) *Controller {
	c := &Controller{
		engine:       engine,
		store:        store,
		files:        opts.Files,
		quality:      opts.Quality,
		skip:         opts.SkipMillis,
		tickInterval: opts.TickInterval,
		newTicker:    opts.NewTicker,
		now:          opts.Now,
		newID:        opts.NewID,
		state:        StateIdle,
		subs:         make(map[int]chan Snapshot),
	}
	if c.quality == "" {
		c.quality = audio.QualityHigh
	}
	if c.skip <= 0 {
		c.skip = DefaultSkipMillis
	}
	if c.tickInterval <= 0 {
		c.tickInterval = DefaultTickInterval
	}
	if c.newTicker == nil {
		c.newTicker = newTimeTicker
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = newNoteID
	}
	return c
}

func newNoteID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// StartRecording arms the microphone. Any loaded playback is torn down
// first.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state == StateRecording || c.state == StateStopping {
		return fmt.Errorf("%w: already recording", ErrInvalidTransition)
	}

	if c.play != nil {
		if err := c.teardownPlaybackLocked(ctx); err != nil {
			slog.Warn("Failed to release playback before recording", "error", err)
		}
		c.publishLocked()
	}

	granted, err := c.engine.PermissionGranted(ctx)
	if err != nil {
		return captureErr("check permission", err)
	}
	if !granted {
		slog.Debug("Requesting microphone permission")
		granted, err = c.engine.RequestPermission(ctx)
		if err != nil {
			return captureErr("request permission", err)
		}
		if !granted {
			return ErrPermissionDenied
		}
	}

	if err := c.engine.SetCaptureMode(ctx, true); err != nil {
		return captureErr("enable capture mode", err)
	}
	capture, err := c.engine.StartCapture(ctx, c.quality)
	if err != nil {
		c.restorePlaybackMode(ctx)
		return captureErr("start capture", err)
	}

	rec := &recordingSession{
		capture: capture,
		ticker:  c.newTicker(c.tickInterval),
		done:    make(chan struct{}),
	}
	c.rec = rec
	c.state = StateRecording
	c.publishLocked()
	go c.runTicker(rec)

	slog.Info("Recording started", "quality", c.quality)
	return nil
}

// StopRecording finalises the capture and files it as a new note. The
// controller is idle afterwards whatever the outcome.
func (c *Controller) StopRecording(ctx context.Context) (notes.VoiceNote, []notes.VoiceNote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording || c.rec == nil {
		return notes.VoiceNote{}, nil, fmt.Errorf("%w: not recording", ErrInvalidTransition)
	}

	rec := c.rec
	c.state = StateStopping
	c.stopTickerLocked(rec)
	c.publishLocked()

	defer func() {
		c.rec = nil
		c.state = StateIdle
		c.publishLocked()
	}()

	return c.finishRecordingLocked(ctx, rec)
}

// finishRecordingLocked finalises rec's capture and saves it as the next
// numbered note. A payload that cannot be saved is removed again.
func (c *Controller) finishRecordingLocked(ctx context.Context, rec *recordingSession) (notes.VoiceNote, []notes.VoiceNote, error) {
	uri, err := rec.capture.StopAndFinalize(ctx)
	c.restorePlaybackMode(ctx)
	if err != nil {
		return notes.VoiceNote{}, nil, captureErr("finalize recording", err)
	}

	note := notes.VoiceNote{
		ID:        c.newID(),
		Name:      notes.NextName(c.store.List(ctx)),
		URI:       uri,
		Timestamp: c.now().UTC().Truncate(time.Millisecond),
		Duration:  rec.elapsed,
	}
	list, err := c.store.Save(ctx, note)
	if err != nil {
		c.discardPayload(ctx, uri)
		return notes.VoiceNote{}, nil, err
	}

	slog.Info("Recording saved", "id", note.ID, "name", note.Name, "duration_ms", note.Duration)
	return note, list, nil
}

func (c *Controller) discardPayload(ctx context.Context, uri string) {
	if c.files == nil || uri == "" {
		return
	}
	if err := c.files.Delete(ctx, uri); err != nil {
		slog.Warn("Failed to remove unsaved recording", "uri", uri, "error", err)
	}
}

// Play loads and starts note. Calling it again with the loaded note toggles
// pause and resume; a different note replaces the loaded one.
func (c *Controller) Play(ctx context.Context, note notes.VoiceNote) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state == StateRecording || c.state == StateStopping {
		return fmt.Errorf("%w: recording in progress", ErrInvalidTransition)
	}

	if sess := c.play; sess != nil && sess.noteID == note.ID {
		return c.togglePauseLocked(ctx, sess)
	}

	if c.play != nil {
		if err := c.teardownPlaybackLocked(ctx); err != nil {
			slog.Warn("Failed to release previous playback", "error", err)
		}
	}

	sess := &playbackSession{noteID: note.ID}
	stream, err := c.engine.LoadPlayable(ctx, note.URI, func(st audio.Status) {
		c.onStatus(sess, st)
	})
	if err != nil {
		c.state = StateIdle
		c.publishLocked()
		return playbackErr("load "+note.URI, err)
	}
	sess.stream = stream
	sess.duration = stream.DurationMillis()
	c.play = sess
	c.state = StatePlaying

	if err := stream.Play(ctx); err != nil {
		if terr := c.teardownPlaybackLocked(ctx); terr != nil {
			slog.Warn("Failed to release stream after play error", "error", terr)
		}
		c.publishLocked()
		return playbackErr("play", err)
	}

	c.publishLocked()
	slog.Debug("Playback started", "id", note.ID, "uri", note.URI)
	return nil
}

func (c *Controller) togglePauseLocked(ctx context.Context, sess *playbackSession) error {
	if sess.paused {
		if err := sess.stream.Play(ctx); err != nil {
			return playbackErr("resume", err)
		}
		sess.paused = false
		c.state = StatePlaying
	} else {
		if err := sess.stream.Pause(ctx); err != nil {
			return playbackErr("pause", err)
		}
		sess.paused = true
		c.state = StatePaused
	}
	c.publishLocked()
	return nil
}

// Stop stops and unloads the loaded stream. It is a no-op when nothing is
// loaded.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.play == nil {
		return nil
	}
	err := c.teardownPlaybackLocked(ctx)
	c.publishLocked()
	if err != nil {
		return playbackErr("stop", err)
	}
	return nil
}

// Seek moves the loaded stream to positionMillis, clamped to the stream.
// It does nothing while the duration is unknown.
func (c *Controller) Seek(ctx context.Context, positionMillis int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(ctx, func(int64) int64 { return positionMillis })
}

// Rewind skips back by the skip interval.
func (c *Controller) Rewind(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(ctx, func(pos int64) int64 { return pos - c.skip })
}

// FastForward skips ahead by the skip interval.
func (c *Controller) FastForward(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(ctx, func(pos int64) int64 { return pos + c.skip })
}

func (c *Controller) seekLocked(ctx context.Context, target func(int64) int64) error {
	sess := c.play
	if sess == nil || sess.duration <= 0 {
		return nil
	}

	pos := max(0, min(target(sess.position), sess.duration))
	if err := sess.stream.SeekTo(ctx, pos); err != nil {
		return playbackErr("seek", err)
	}
	sess.position = pos
	c.publishLocked()
	return nil
}

// Close saves a live recording as StopRecording would, unloads any stream
// and closes every subscription.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	var err error
	if rec := c.rec; rec != nil {
		c.state = StateStopping
		c.stopTickerLocked(rec)
		if _, _, ferr := c.finishRecordingLocked(ctx, rec); ferr != nil {
			err = multierr.Append(err, ferr)
		}
		c.rec = nil
	}
	if c.play != nil {
		err = multierr.Append(err, c.teardownPlaybackLocked(ctx))
	}

	c.state = StateIdle
	c.publishLocked()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.closed = true
	return err
}

// onStatus applies an engine status report. Reports from a session that is
// no longer loaded are dropped.
func (c *Controller) onStatus(sess *playbackSession, st audio.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.play != sess {
		return
	}

	if st.DidFinish {
		slog.Debug("Playback finished", "id", sess.noteID)
		if err := sess.stream.Unload(context.Background()); err != nil {
			slog.Warn("Failed to unload finished stream", "error", err)
		}
		c.play = nil
		c.state = StateIdle
		c.publishLocked()
		return
	}

	if st.DurationMillis > 0 {
		sess.duration = st.DurationMillis
	}
	sess.position = st.PositionMillis
	c.publishLocked()
}

func (c *Controller) runTicker(rec *recordingSession) {
	for {
		select {
		case <-rec.done:
			return
		case <-rec.ticker.C():
			c.tick(rec)
		}
	}
}

func (c *Controller) tick(rec *recordingSession) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rec != rec || c.state != StateRecording {
		return
	}
	rec.elapsed += c.tickInterval.Milliseconds()
	c.publishLocked()
}

func (c *Controller) stopTickerLocked(rec *recordingSession) {
	rec.ticker.Stop()
	select {
	case <-rec.done:
	default:
		close(rec.done)
	}
}

func (c *Controller) teardownPlaybackLocked(ctx context.Context) error {
	sess := c.play
	c.play = nil
	c.state = StateIdle
	return multierr.Combine(sess.stream.Stop(ctx), sess.stream.Unload(ctx))
}

func (c *Controller) restorePlaybackMode(ctx context.Context) {
	if err := c.engine.SetCaptureMode(ctx, false); err != nil {
		slog.Warn("Failed to restore playback mode", "error", err)
	}
}

func captureErr(op string, err error) error {
	if errors.Is(err, audio.ErrCapture) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", audio.ErrCapture, op, err)
}

func playbackErr(op string, err error) error {
	if errors.Is(err, audio.ErrPlayback) || errors.Is(err, audio.ErrPayloadMissing) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", audio.ErrPlayback, op, err)
}
