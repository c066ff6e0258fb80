package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/voicejournal/internal/controller"
	"github.com/audiolibrelab/voicejournal/internal/notes"
	"github.com/audiolibrelab/voicejournal/internal/service"
)

// notesLoadedMsg carries the current collection.
type notesLoadedMsg struct {
	notes []notes.VoiceNote
}

// snapshotMsg carries a controller snapshot. ok is false once the
// subscription is closed.
type snapshotMsg struct {
	snap controller.Snapshot
	ok   bool
}

// opDoneMsg reports the outcome of a service call. The error text itself is
// read from the service's last error.
type opDoneMsg struct {
	err    error
	status string
	reload bool
}

func loadNotesCmd(ctx context.Context, svc service.Service) tea.Cmd {
	return func() tea.Msg {
		return notesLoadedMsg{notes: svc.Notes(ctx)}
	}
}

// waitSnapshotCmd blocks until the next snapshot arrives.
func waitSnapshotCmd(ch <-chan controller.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		return snapshotMsg{snap: snap, ok: ok}
	}
}

func startRecordingCmd(ctx context.Context, svc service.Service) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: svc.StartRecording(ctx)}
	}
}

func stopRecordingCmd(ctx context.Context, svc service.Service) tea.Cmd {
	return func() tea.Msg {
		note, err := svc.StopRecording(ctx)
		if err != nil {
			return opDoneMsg{err: err, reload: true}
		}
		return opDoneMsg{status: "Saved " + note.Name, reload: true}
	}
}

func playCmd(ctx context.Context, svc service.Service, id string) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: svc.Play(ctx, id)}
	}
}

func transportCmd(ctx context.Context, op func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: op(ctx)}
	}
}

func renameCmd(ctx context.Context, svc service.Service, id, name string) tea.Cmd {
	return func() tea.Msg {
		_, err := svc.Rename(ctx, id, name)
		return opDoneMsg{err: err, reload: true}
	}
}

func deleteCmd(ctx context.Context, svc service.Service, note notes.VoiceNote) tea.Cmd {
	return func() tea.Msg {
		if _, err := svc.Delete(ctx, note.ID); err != nil {
			return opDoneMsg{err: err, reload: true}
		}
		return opDoneMsg{status: "Deleted " + note.Name, reload: true}
	}
}
