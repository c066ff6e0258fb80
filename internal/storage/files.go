package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Files is the payload facility: it answers whether an audio file exists and
// removes it.
type Files interface {
	Exists(ctx context.Context, uri string) (bool, error)
	Delete(ctx context.Context, uri string) error
}

// AudioDir keeps audio payloads in one directory.
type AudioDir struct {
	fs  afero.Fs
	dir string
}

// NewAudioDir creates dir if needed.
func NewAudioDir(fs afero.Fs, dir string) (*AudioDir, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}
	return &AudioDir{fs: fs, dir: dir}, nil
}

// Dir returns the directory payloads are written to.
func (d *AudioDir) Dir() string {
	return d.dir
}

// NewPath returns a fresh, unused location for a recording with the given
// extension (".m4a" or "m4a").
func (d *AudioDir) NewPath(ext string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate recording name: %w", err)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(d.dir, "recording-"+id.String()+ext), nil
}

// Exists reports whether uri points to an existing file.
func (d *AudioDir) Exists(ctx context.Context, uri string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := afero.Exists(d.fs, uri)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", uri, err)
	}
	return ok, nil
}

// Delete removes the file at uri.
func (d *AudioDir) Delete(ctx context.Context, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.fs.Remove(uri); err != nil {
		return fmt.Errorf("remove %s: %w", uri, err)
	}
	return nil
}
