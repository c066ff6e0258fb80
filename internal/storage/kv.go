// Package storage provides the persistence collaborators used by the note
// store: a string key-value store for metadata and a file facility for audio
// payloads.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// KV is an asynchronous-style key-value store. Each call is atomic: a Set
// either fully replaces the value or leaves the previous one in place.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// FileKV stores every key in its own file below a directory. Writes go to a
// temporary file that is renamed over the target so readers never observe a
// partial value.
type FileKV struct {
	fs  afero.Fs
	dir string
}

// NewFileKV creates the directory if needed and returns a FileKV rooted there.
func NewFileKV(fs afero.Fs, dir string) (*FileKV, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}
	return &FileKV{fs: fs, dir: dir}, nil
}

// Get reads the file backing key.
func (k *FileKV) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	data, err := afero.ReadFile(k.fs, k.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read key %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set writes value to a temp file and renames it into place.
func (k *FileKV) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := afero.TempFile(k.fs, k.dir, ".kv-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		k.fs.Remove(tmpName)
		return err
	}

	if _, err := tmp.WriteString(value); err != nil {
		return cleanup(fmt.Errorf("write key %s: %w", key, err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync key %s: %w", key, err))
	}
	if err := tmp.Close(); err != nil {
		k.fs.Remove(tmpName)
		return fmt.Errorf("close key %s: %w", key, err)
	}

	if err := k.fs.Rename(tmpName, k.path(key)); err != nil {
		k.fs.Remove(tmpName)
		return fmt.Errorf("replace key %s: %w", key, err)
	}
	return nil
}

// path maps a key to a file name. Keys such as "@voice_notes_metadata" are
// escaped so any string is a valid key.
func (k *FileKV) path(key string) string {
	return filepath.Join(k.dir, url.PathEscape(key)+".json")
}
