package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/voicejournal/internal/config"
	"github.com/audiolibrelab/voicejournal/internal/controller"
	"github.com/audiolibrelab/voicejournal/internal/notes"
)

type fakeService struct {
	notes     []notes.VoiceNote
	snapshots chan controller.Snapshot
	lastError string
	calls     []string
}

func newFakeService(list ...notes.VoiceNote) *fakeService {
	return &fakeService{notes: list, snapshots: make(chan controller.Snapshot, 1)}
}

func (f *fakeService) Notes(ctx context.Context) []notes.VoiceNote { return f.notes }
func (f *fakeService) Search(ctx context.Context, q string) []notes.VoiceNote {
	return notes.Filter(f.notes, q)
}
func (f *fakeService) Note(ctx context.Context, id string) (notes.VoiceNote, error) {
	return notes.VoiceNote{}, nil
}

func (f *fakeService) Rename(ctx context.Context, id, name string) ([]notes.VoiceNote, error) {
	f.calls = append(f.calls, "rename:"+id+":"+name)
	return f.notes, nil
}

func (f *fakeService) Delete(ctx context.Context, id string) ([]notes.VoiceNote, error) {
	f.calls = append(f.calls, "delete:"+id)
	return f.notes, nil
}

func (f *fakeService) StartRecording(ctx context.Context) error {
	f.calls = append(f.calls, "start")
	return nil
}

func (f *fakeService) StopRecording(ctx context.Context) (notes.VoiceNote, error) {
	f.calls = append(f.calls, "stop-recording")
	return notes.VoiceNote{ID: "new", Name: "Voice Note 3"}, nil
}

func (f *fakeService) Play(ctx context.Context, id string) error {
	f.calls = append(f.calls, "play:"+id)
	return nil
}

func (f *fakeService) Stop(ctx context.Context) error                       { return nil }
func (f *fakeService) Seek(ctx context.Context, positionMillis int64) error { return nil }
func (f *fakeService) Rewind(ctx context.Context) error                     { return nil }
func (f *fakeService) FastForward(ctx context.Context) error                { return nil }
func (f *fakeService) Snapshot() controller.Snapshot                        { return controller.Snapshot{State: controller.StateIdle} }
func (f *fakeService) Subscribe() (<-chan controller.Snapshot, func())      { return f.snapshots, func() {} }
func (f *fakeService) LastError() string                                    { return f.lastError }
func (f *fakeService) ClearError()                                          { f.lastError = "" }
func (f *fakeService) Config() *config.Config                               { return config.Default() }
func (f *fakeService) Close(ctx context.Context) error                      { return nil }

func twoNotes() []notes.VoiceNote {
	return []notes.VoiceNote{
		{ID: "b", Name: "Morning pages", Duration: 65000, Timestamp: time.Now().Add(-time.Hour)},
		{ID: "a", Name: "Voice Note 1", Duration: 3000, Timestamp: time.Now().Add(-2 * time.Hour)},
	}
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loaded returns a model that has received the service's notes.
func loaded(t *testing.T, svc *fakeService) Model {
	t.Helper()
	m := New(context.Background(), svc)
	updated, _ := m.Update(notesLoadedMsg{notes: svc.Notes(context.Background())})
	return updated.(Model)
}

// press sends a key to the model.
func press(m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func TestNotesLoaded(t *testing.T) {
	m := loaded(t, newFakeService(twoNotes()...))

	view := m.View()
	if !strings.Contains(view, "2 recordings") {
		t.Errorf("Expected recording count in view, got:\n%s", view)
	}
	if !strings.Contains(view, "Morning pages") || !strings.Contains(view, "1:05") {
		t.Errorf("Expected note row in view, got:\n%s", view)
	}
}

func TestEmptyJournal(t *testing.T) {
	m := loaded(t, newFakeService())

	if !strings.Contains(m.View(), "No recordings yet") {
		t.Errorf("Expected empty state, got:\n%s", m.View())
	}
}

func TestFilter(t *testing.T) {
	m := loaded(t, newFakeService(twoNotes()...))

	m, _ = press(m, runeKey("/"))
	if m.mode != modeFilter {
		t.Fatalf("Expected filter mode, got %v", m.mode)
	}
	for _, r := range "voice" {
		updated, _ := m.Update(runeKey(string(r)))
		m = updated.(Model)
	}
	if len(m.visible) != 1 || m.visible[0].ID != "a" {
		t.Errorf("Expected only note a visible, got %+v", m.visible)
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.mode != modeBrowse || len(m.visible) != 2 {
		t.Errorf("Expected esc to clear the filter, got mode %v with %d visible", m.mode, len(m.visible))
	}
}

func TestPlaySelected(t *testing.T) {
	svc := newFakeService(twoNotes()...)
	m := loaded(t, svc)

	m, _ = press(m, runeKey("j"))
	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})

	if msg := cmd(); msg == nil {
		t.Fatal("Expected a result message from play")
	}
	if len(svc.calls) != 1 || svc.calls[0] != "play:a" {
		t.Errorf("Expected play of the second note, got %v", svc.calls)
	}
}

func TestRecordToggle(t *testing.T) {
	svc := newFakeService()
	m := loaded(t, svc)

	m, cmd := press(m, runeKey("r"))
	cmd()
	updated, _ := m.Update(snapshotMsg{snap: controller.Snapshot{State: controller.StateRecording, ElapsedMillis: 4000}, ok: true})
	m = updated.(Model)
	if !strings.Contains(m.View(), "REC 0:04") {
		t.Errorf("Expected recording banner, got:\n%s", m.View())
	}

	m, cmd = press(m, runeKey("r"))
	updated, _ = m.Update(cmd())
	m = updated.(Model)

	if strings.Join(svc.calls, ",") != "start,stop-recording" {
		t.Errorf("Expected start then stop, got %v", svc.calls)
	}
	if m.status != "Saved Voice Note 3" {
		t.Errorf("Expected saved status, got %q", m.status)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	svc := newFakeService(twoNotes()...)
	m := loaded(t, svc)

	m, _ = press(m, runeKey("d"))
	if !strings.Contains(m.View(), `Delete "Morning pages"?`) {
		t.Errorf("Expected confirmation prompt, got:\n%s", m.View())
	}
	m, _ = press(m, runeKey("x"))
	if len(svc.calls) != 0 || m.mode != modeBrowse {
		t.Fatalf("Expected delete cancelled, got calls %v", svc.calls)
	}

	m, _ = press(m, runeKey("d"))
	_, cmd := press(m, runeKey("y"))
	cmd()
	if len(svc.calls) != 1 || svc.calls[0] != "delete:b" {
		t.Errorf("Expected delete of note b, got %v", svc.calls)
	}
}

func TestRename(t *testing.T) {
	svc := newFakeService(twoNotes()...)
	m := loaded(t, svc)

	m, _ = press(m, runeKey("n"))
	if m.renameInput.Value() != "Morning pages" {
		t.Fatalf("Expected rename input prefilled, got %q", m.renameInput.Value())
	}
	m.renameInput.SetValue("Reflection")
	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	cmd()

	if len(svc.calls) != 1 || svc.calls[0] != "rename:b:Reflection" {
		t.Errorf("Expected rename call, got %v", svc.calls)
	}
}

func TestErrorDismiss(t *testing.T) {
	svc := newFakeService(twoNotes()...)
	svc.lastError = "Failed to play recording: audio payload missing"
	m := loaded(t, svc)

	if !strings.Contains(m.View(), "audio payload missing") {
		t.Errorf("Expected error in view, got:\n%s", m.View())
	}
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if strings.Contains(m.View(), "audio payload missing") {
		t.Error("Expected error dismissed")
	}
}

func TestPlayerBar(t *testing.T) {
	m := loaded(t, newFakeService(twoNotes()...))

	updated, _ := m.Update(snapshotMsg{snap: controller.Snapshot{
		State:          controller.StatePaused,
		NoteID:         "b",
		PositionMillis: 30000,
		DurationMillis: 65000,
		Paused:         true,
	}, ok: true})
	view := updated.(Model).View()

	if !strings.Contains(view, "0:30 / 1:05") {
		t.Errorf("Expected progress in view, got:\n%s", view)
	}
	if !strings.Contains(view, "⏸ Morning pages") {
		t.Errorf("Expected paused marker, got:\n%s", view)
	}
}

func TestClosedSubscriptionStopsListening(t *testing.T) {
	m := loaded(t, newFakeService())

	_, cmd := m.Update(snapshotMsg{ok: false})
	if cmd != nil {
		t.Error("Expected no further snapshot command after close")
	}
}
