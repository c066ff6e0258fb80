package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/audiolibrelab/voicejournal/internal/storage"
)

// Store is the durable note collection. Every operation reads the whole
// collection, modifies it and writes it back under one key. The mutex only
// serialises callers inside this process; two processes sharing the same
// backing store can still lose each other's updates.
type Store struct {
	mu    sync.Mutex
	kv    storage.KV
	files storage.Files
	key   string
}

// NewStore returns a store persisting under key (DefaultKey when empty).
func NewStore(kv storage.KV, files storage.Files, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, files: files, key: key}
}

// List returns the collection, newest first. A missing or unreadable
// collection is reported as empty.
func (s *Store) List(ctx context.Context) []VoiceNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Get returns the note with the given id.
func (s *Store) Get(ctx context.Context, id string) (VoiceNote, bool) {
	for _, n := range s.List(ctx) {
		if n.ID == id {
			return n, true
		}
	}
	return VoiceNote{}, false
}

// Save prepends note and persists the collection.
func (s *Store) Save(ctx context.Context, note VoiceNote) ([]VoiceNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.loadLocked(ctx)
	updated := make([]VoiceNote, 0, len(current)+1)
	updated = append(updated, note)
	updated = append(updated, current...)

	if err := s.writeLocked(ctx, updated); err != nil {
		return nil, err
	}
	slog.Debug("Saved voice note", "id", note.ID, "name", note.Name, "count", len(updated))
	return updated, nil
}

// Update merges patch into the note with the given id. An unknown id leaves
// the collection untouched and is not an error.
func (s *Store) Update(ctx context.Context, id string, patch Patch) ([]VoiceNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.loadLocked(ctx)
	idx := indexOf(current, id)
	if idx < 0 {
		return current, nil
	}

	current[idx] = patch.apply(current[idx])
	if err := s.writeLocked(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Delete removes the note and, best effort, its audio payload. A payload that
// is already gone or cannot be removed does not stop the metadata removal.
func (s *Store) Delete(ctx context.Context, id string) ([]VoiceNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.loadLocked(ctx)
	idx := indexOf(current, id)
	if idx < 0 {
		return current, nil
	}

	s.removePayload(ctx, current[idx])

	updated := make([]VoiceNote, 0, len(current)-1)
	updated = append(updated, current[:idx]...)
	updated = append(updated, current[idx+1:]...)

	if err := s.writeLocked(ctx, updated); err != nil {
		return nil, err
	}
	slog.Debug("Deleted voice note", "id", id, "count", len(updated))
	return updated, nil
}

func (s *Store) removePayload(ctx context.Context, note VoiceNote) {
	if s.files == nil || note.URI == "" {
		return
	}

	exists, err := s.files.Exists(ctx, note.URI)
	if err != nil {
		slog.Warn("Failed to check audio payload", "id", note.ID, "uri", note.URI, "error", err)
		return
	}
	if !exists {
		slog.Debug("Audio payload already gone", "id", note.ID, "uri", note.URI)
		return
	}

	if err := s.files.Delete(ctx, note.URI); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to delete audio payload", "id", note.ID, "uri", note.URI, "error", err)
	}
}

func (s *Store) loadLocked(ctx context.Context) []VoiceNote {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		slog.Warn("Failed to read notes metadata, treating as empty", "key", s.key, "error", err)
		return []VoiceNote{}
	}
	if !ok || raw == "" {
		return []VoiceNote{}
	}

	var list []VoiceNote
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		slog.Warn("Corrupt notes metadata, treating as empty", "key", s.key, "error", err)
		return []VoiceNote{}
	}
	if list == nil {
		list = []VoiceNote{}
	}
	return list
}

func (s *Store) writeLocked(ctx context.Context, list []VoiceNote) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%w: encode notes: %w", ErrPersistence, err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("%w: write notes: %w", ErrPersistence, err)
	}
	return nil
}

func indexOf(list []VoiceNote, id string) int {
	for i, n := range list {
		if n.ID == id {
			return i
		}
	}
	return -1
}
