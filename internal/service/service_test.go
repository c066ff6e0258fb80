package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/audiolibrelab/voicejournal/internal/audio"
	"github.com/audiolibrelab/voicejournal/internal/config"
	"github.com/audiolibrelab/voicejournal/internal/controller"
	"github.com/audiolibrelab/voicejournal/internal/notes"
	"github.com/audiolibrelab/voicejournal/internal/storage"
)

// stubEngine records into files on the in-memory filesystem and plays
// nothing.
type stubEngine struct {
	fs      afero.Fs
	files   *storage.AudioDir
	granted bool
	streams []*stubStream
}

func (e *stubEngine) PermissionGranted(ctx context.Context) (bool, error) { return e.granted, nil }
func (e *stubEngine) RequestPermission(ctx context.Context) (bool, error) { return e.granted, nil }
func (e *stubEngine) SetCaptureMode(ctx context.Context, enabled bool) error {
	return nil
}

func (e *stubEngine) StartCapture(ctx context.Context, quality audio.Quality) (audio.Capture, error) {
	path, err := e.files.NewPath(".m4a")
	if err != nil {
		return nil, err
	}
	return &stubCapture{fs: e.fs, path: path}, nil
}

func (e *stubEngine) LoadPlayable(ctx context.Context, uri string, onStatus func(audio.Status)) (audio.Stream, error) {
	if ok, _ := afero.Exists(e.fs, uri); !ok {
		return nil, audio.ErrPayloadMissing
	}
	s := &stubStream{}
	e.streams = append(e.streams, s)
	return s, nil
}

type stubCapture struct {
	fs   afero.Fs
	path string
}

func (c *stubCapture) StopAndFinalize(ctx context.Context) (string, error) {
	return c.path, afero.WriteFile(c.fs, c.path, []byte("audio"), 0o644)
}

type stubStream struct {
	unloaded bool
}

func (s *stubStream) Play(ctx context.Context) error             { return nil }
func (s *stubStream) Pause(ctx context.Context) error            { return nil }
func (s *stubStream) SeekTo(ctx context.Context, ms int64) error { return nil }
func (s *stubStream) Stop(ctx context.Context) error             { return nil }
func (s *stubStream) DurationMillis() int64                      { return 0 }
func (s *stubStream) Unload(ctx context.Context) error {
	s.unloaded = true
	return nil
}

type closeCounter struct {
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func newTestService(t *testing.T) (*JournalService, *stubEngine, *closeCounter) {
	t.Helper()

	fs := afero.NewMemMapFs()
	cfg := config.Default()
	kv, err := storage.NewFileKV(fs, "/data/meta")
	if err != nil {
		t.Fatalf("Failed to create kv: %v", err)
	}
	files, err := storage.NewAudioDir(fs, "/data/audio")
	if err != nil {
		t.Fatalf("Failed to create audio dir: %v", err)
	}

	engine := &stubEngine{fs: fs, files: files, granted: true}
	closer := &closeCounter{}
	svc := newService(cfg, kv, files, engine, closer)
	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc, engine, closer
}

func record(t *testing.T, svc *JournalService) notes.VoiceNote {
	t.Helper()
	ctx := context.Background()
	if err := svc.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	note, err := svc.StopRecording(ctx)
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	return note
}

func TestRecordThenList(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first := record(t, svc)
	second := record(t, svc)

	list := svc.Notes(ctx)
	if len(list) != 2 {
		t.Fatalf("Expected 2 notes, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("Expected newest first, got %s, %s", list[0].ID, list[1].ID)
	}
	if !strings.HasSuffix(first.URI, ".m4a") {
		t.Errorf("Expected .m4a payload, got %s", first.URI)
	}
	if svc.LastError() != "" {
		t.Errorf("Expected no error, got %q", svc.LastError())
	}
}

func TestRename_SecondOfTwo(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	first := record(t, svc)
	record(t, svc)

	list, err := svc.Rename(ctx, first.ID, "  Reflection ")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if len(list) != 2 || list[1].ID != first.ID {
		t.Fatalf("Expected same length and order, got %+v", list)
	}
	if list[1].Name != "Reflection" {
		t.Errorf("Expected name 'Reflection', got %q", list[1].Name)
	}
	if list[0].Name != "Voice Note 2" {
		t.Errorf("Expected other note untouched, got %q", list[0].Name)
	}
}

func TestRename_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	note := record(t, svc)

	if _, err := svc.Rename(ctx, note.ID, "   "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
	if !strings.Contains(svc.LastError(), "Failed to rename recording") {
		t.Errorf("Expected rename error recorded, got %q", svc.LastError())
	}

	svc.ClearError()
	if _, err := svc.Rename(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if svc.LastError() == "" {
		t.Error("Expected last error to be set")
	}
}

func TestDelete_StopsLoadedPlayback(t *testing.T) {
	svc, engine, _ := newTestService(t)
	ctx := context.Background()
	note := record(t, svc)

	if err := svc.Play(ctx, note.ID); err != nil {
		t.Fatalf("Play: %v", err)
	}
	list, err := svc.Delete(ctx, note.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected empty collection, got %d notes", len(list))
	}
	if !engine.streams[0].unloaded {
		t.Error("Expected playback to be unloaded before delete")
	}
	if ok, _ := afero.Exists(engine.fs, note.URI); ok {
		t.Error("Expected payload to be removed")
	}
	if _, err := svc.Delete(ctx, note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPlay_Errors(t *testing.T) {
	svc, engine, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Play(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	note := record(t, svc)
	engine.fs.Remove(note.URI)
	err := svc.Play(ctx, note.ID)
	if !errors.Is(err, audio.ErrPayloadMissing) {
		t.Errorf("Expected ErrPayloadMissing, got %v", err)
	}
	if !strings.HasPrefix(svc.LastError(), "Failed to play recording") {
		t.Errorf("Expected play error recorded, got %q", svc.LastError())
	}
	if svc.Snapshot().State != controller.StateIdle {
		t.Errorf("Expected IDLE, got %s", svc.Snapshot().State)
	}
}

func TestStartRecording_PermissionDeniedMessage(t *testing.T) {
	svc, engine, _ := newTestService(t)
	engine.granted = false

	err := svc.StartRecording(context.Background())
	if !errors.Is(err, controller.ErrPermissionDenied) {
		t.Fatalf("Expected ErrPermissionDenied, got %v", err)
	}
	if svc.LastError() != "Permission to access microphone is required to record" {
		t.Errorf("Unexpected error message: %q", svc.LastError())
	}
}

func TestSearch(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	first := record(t, svc)
	record(t, svc)
	svc.Rename(ctx, first.ID, "Morning pages")

	got := svc.Search(ctx, "MORNING")
	if len(got) != 1 || got[0].ID != first.ID {
		t.Errorf("Expected only the renamed note, got %+v", got)
	}
	if len(svc.Search(ctx, "")) != 2 {
		t.Error("Expected empty query to return everything")
	}
}

func TestClose_ClosesBackends(t *testing.T) {
	svc, _, closer := newTestService(t)

	if err := svc.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closer.closed != 1 {
		t.Errorf("Expected backend closed once, got %d", closer.closed)
	}
}

func TestNew_SQLiteBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.Backend = config.BackendSQLite

	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close(context.Background())

	if got := svc.Notes(context.Background()); len(got) != 0 {
		t.Errorf("Expected empty journal, got %d notes", len(got))
	}
	if svc.Config() != cfg {
		t.Error("Expected service to expose its config")
	}
}
