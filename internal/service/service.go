package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/audiolibrelab/voicejournal/internal/audio"
	"github.com/audiolibrelab/voicejournal/internal/config"
	"github.com/audiolibrelab/voicejournal/internal/controller"
	"github.com/audiolibrelab/voicejournal/internal/notes"
	"github.com/audiolibrelab/voicejournal/internal/storage"
)

var (
	// ErrNotFound is returned when no note has the requested id.
	ErrNotFound = errors.New("note not found")
	// ErrEmptyName is returned when renaming a note to a blank name.
	ErrEmptyName = errors.New("name must not be empty")
)

// Service is what the CLI and the TUI drive.
type Service interface {
	// Note operations
	Notes(ctx context.Context) []notes.VoiceNote
	Search(ctx context.Context, query string) []notes.VoiceNote
	Note(ctx context.Context, id string) (notes.VoiceNote, error)
	Rename(ctx context.Context, id, name string) ([]notes.VoiceNote, error)
	Delete(ctx context.Context, id string) ([]notes.VoiceNote, error)

	// Recording operations
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) (notes.VoiceNote, error)

	// Playback operations
	Play(ctx context.Context, id string) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, positionMillis int64) error
	Rewind(ctx context.Context) error
	FastForward(ctx context.Context) error

	// State
	Snapshot() controller.Snapshot
	Subscribe() (<-chan controller.Snapshot, func())
	LastError() string
	ClearError()
	Config() *config.Config

	Close(ctx context.Context) error
}

// JournalService wires the note store and the controller together and keeps
// the last error for display.
type JournalService struct {
	cfg     *config.Config
	store   *notes.Store
	ctrl    *controller.Controller
	closers []io.Closer

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

var _ Service = (*JournalService)(nil)

// New builds a service on the local filesystem from cfg.
func New(cfg *config.Config) (*JournalService, error) {
	fs := afero.NewOsFs()

	files, err := storage.NewAudioDir(fs, cfg.AudioDir())
	if err != nil {
		return nil, err
	}

	var kv storage.KV
	var closers []io.Closer
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		path := cfg.DatabasePath()
		if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		db, err := storage.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		kv = db
		closers = append(closers, db)
	default:
		fileKV, err := storage.NewFileKV(fs, cfg.MetadataDir())
		if err != nil {
			return nil, err
		}
		kv = fileKV
	}

	slog.Debug("Service storage ready", "backend", cfg.Storage.Backend, "audio_dir", files.Dir())
	return newService(cfg, kv, files, audio.NewEngine(cfg, files), closers...), nil
}

func newService(cfg *config.Config, kv storage.KV, files storage.Files, engine audio.Engine, closers ...io.Closer) *JournalService {
	store := notes.NewStore(kv, files, cfg.Storage.Key)
	ctrl := controller.New(engine, store, controller.Options{
		Quality:    audio.Quality(cfg.Audio.Quality),
		SkipMillis: int64(cfg.Playback.SkipIntervalMs),
		Files:      files,
	})
	return &JournalService{
		cfg:     cfg,
		store:   store,
		ctrl:    ctrl,
		closers: closers,
	}
}

// Notes returns every note, newest first.
func (s *JournalService) Notes(ctx context.Context) []notes.VoiceNote {
	return s.store.List(ctx)
}

// Search returns the notes whose name contains query.
func (s *JournalService) Search(ctx context.Context, query string) []notes.VoiceNote {
	return notes.Filter(s.store.List(ctx), query)
}

// Note looks up a single note.
func (s *JournalService) Note(ctx context.Context, id string) (notes.VoiceNote, error) {
	note, ok := s.store.Get(ctx, id)
	if !ok {
		return notes.VoiceNote{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return note, nil
}

// Rename changes a note's display name.
func (s *JournalService) Rename(ctx context.Context, id, name string) ([]notes.VoiceNote, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		s.setLastError(fmt.Sprintf("Failed to rename recording: %v", ErrEmptyName))
		return nil, ErrEmptyName
	}
	if _, err := s.Note(ctx, id); err != nil {
		s.setLastError(fmt.Sprintf("Failed to rename recording: %v", err))
		return nil, err
	}

	list, err := s.store.Update(ctx, id, notes.Patch{Name: &name})
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to rename recording: %v", err))
		return nil, err
	}
	return list, nil
}

// Delete removes a note and its audio. A note that is currently loaded for
// playback is stopped first.
func (s *JournalService) Delete(ctx context.Context, id string) ([]notes.VoiceNote, error) {
	if _, err := s.Note(ctx, id); err != nil {
		s.setLastError(fmt.Sprintf("Failed to delete recording: %v", err))
		return nil, err
	}
	if s.ctrl.Snapshot().NoteID == id {
		if err := s.ctrl.Stop(ctx); err != nil {
			slog.Warn("Failed to stop playback before delete", "id", id, "error", err)
		}
	}

	list, err := s.store.Delete(ctx, id)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to delete recording: %v", err))
		return nil, err
	}
	return list, nil
}

// StartRecording begins a new recording.
func (s *JournalService) StartRecording(ctx context.Context) error {
	slog.Debug("Service.StartRecording called")
	s.clearLastError()

	err := s.ctrl.StartRecording(ctx)
	switch {
	case errors.Is(err, controller.ErrPermissionDenied):
		s.setLastError("Permission to access microphone is required to record")
	case err != nil:
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
	}
	return err
}

// StopRecording finishes the recording and returns the saved note.
func (s *JournalService) StopRecording(ctx context.Context) (notes.VoiceNote, error) {
	note, _, err := s.ctrl.StopRecording(ctx)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to save recording: %v", err))
		return notes.VoiceNote{}, err
	}
	return note, nil
}

// Play plays, pauses or resumes the note with the given id.
func (s *JournalService) Play(ctx context.Context, id string) error {
	note, err := s.Note(ctx, id)
	if err == nil {
		err = s.ctrl.Play(ctx, note)
	}
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to play recording: %v", err))
	}
	return err
}

// Stop ends playback.
func (s *JournalService) Stop(ctx context.Context) error {
	return s.playbackOp("stop playback", s.ctrl.Stop(ctx))
}

// Seek moves playback to positionMillis.
func (s *JournalService) Seek(ctx context.Context, positionMillis int64) error {
	return s.playbackOp("seek", s.ctrl.Seek(ctx, positionMillis))
}

// Rewind skips playback back.
func (s *JournalService) Rewind(ctx context.Context) error {
	return s.playbackOp("rewind", s.ctrl.Rewind(ctx))
}

// FastForward skips playback ahead.
func (s *JournalService) FastForward(ctx context.Context) error {
	return s.playbackOp("fast forward", s.ctrl.FastForward(ctx))
}

func (s *JournalService) playbackOp(op string, err error) error {
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to %s: %v", op, err))
	}
	return err
}

func (s *JournalService) Snapshot() controller.Snapshot {
	return s.ctrl.Snapshot()
}

func (s *JournalService) Subscribe() (<-chan controller.Snapshot, func()) {
	return s.ctrl.Subscribe()
}

// Config returns the configuration the service was built from.
func (s *JournalService) Config() *config.Config {
	return s.cfg
}

// Close releases the controller's sessions and the storage backend.
func (s *JournalService) Close(ctx context.Context) error {
	err := s.ctrl.Close(ctx)
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// LastError returns the last error message (thread-safe)
func (s *JournalService) LastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// ClearError dismisses the last error.
func (s *JournalService) ClearError() {
	s.clearLastError()
}

// setLastError sets the last error message (thread-safe)
func (s *JournalService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Error("Service error occurred", "error_message", err)
}

func (s *JournalService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}
