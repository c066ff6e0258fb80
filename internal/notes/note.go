// Package notes owns the voice note metadata collection and keeps it
// consistent with the audio payloads on disk.
package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultKey is the persistence key holding the JSON encoded collection.
const DefaultKey = "@voice_notes_metadata"

// ErrPersistence is returned when the collection cannot be written.
var ErrPersistence = errors.New("persistence error")

// VoiceNote is the metadata of one recording. Only Name is mutable.
type VoiceNote struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URI       string    `json:"uri"`
	Timestamp time.Time `json:"timestamp"`
	Duration  int64     `json:"duration"` // milliseconds
}

// Patch holds the updatable fields of a note. Nil fields are left untouched.
type Patch struct {
	Name *string
}

func (p Patch) apply(n VoiceNote) VoiceNote {
	if p.Name != nil {
		n.Name = *p.Name
	}
	return n
}

// NextName returns the default name for a note created after existing.
func NextName(existing []VoiceNote) string {
	return fmt.Sprintf("Voice Note %d", len(existing)+1)
}

// Filter returns the notes whose name contains query, ignoring case. The
// result keeps the input order; an empty query matches everything. The
// query is used as typed, surrounding spaces included.
func Filter(list []VoiceNote, query string) []VoiceNote {
	q := strings.ToLower(query)
	out := make([]VoiceNote, 0, len(list))
	for _, n := range list {
		if q == "" || strings.Contains(strings.ToLower(n.Name), q) {
			out = append(out, n)
		}
	}
	return out
}

// FormatMillis renders a duration as m:ss.
func FormatMillis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := (ms + 500) / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// CountLabel renders a collection size as "1 recording" or "N recordings".
func CountLabel(n int) string {
	if n == 1 {
		return "1 recording"
	}
	return fmt.Sprintf("%d recordings", n)
}
