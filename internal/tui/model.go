package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/dustin/go-humanize"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/voicejournal/internal/controller"
	"github.com/audiolibrelab/voicejournal/internal/notes"
	"github.com/audiolibrelab/voicejournal/internal/service"
)

type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeRename
	modeConfirmDelete
)

const progressWidth = 30

// Model is the root bubbletea model of the journal UI.
type Model struct {
	ctx context.Context
	svc service.Service

	snapshots <-chan controller.Snapshot
	cancel    func()

	all     []notes.VoiceNote
	visible []notes.VoiceNote
	cursor  int
	snap    controller.Snapshot

	mode        mode
	filterInput textinput.Model
	renameInput textinput.Model
	help        help.Model

	status string
	width  int
	height int
}

// New subscribes to svc's snapshots. Call Close when the program exits.
func New(ctx context.Context, svc service.Service) Model {
	fi := textinput.New()
	fi.Prompt = "/ "
	fi.Placeholder = "search recordings..."
	fi.CharLimit = 64

	ri := textinput.New()
	ri.Prompt = "name: "
	ri.CharLimit = 80

	ch, cancel := svc.Subscribe()
	return Model{
		ctx:         ctx,
		svc:         svc,
		snapshots:   ch,
		cancel:      cancel,
		snap:        svc.Snapshot(),
		filterInput: fi,
		renameInput: ri,
		help:        help.New(),
	}
}

// Close ends the snapshot subscription.
func (m Model) Close() {
	m.cancel()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(loadNotesCmd(m.ctx, m.svc), waitSnapshotCmd(m.snapshots))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeFilter:
			return m.updateFilter(msg)
		case modeRename:
			return m.updateRename(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		}
		return m.updateBrowse(msg)

	case notesLoadedMsg:
		m.all = msg.notes
		m.applyFilter()
		return m, nil

	case snapshotMsg:
		if !msg.ok {
			return m, nil
		}
		m.snap = msg.snap
		return m, waitSnapshotCmd(m.snapshots)

	case opDoneMsg:
		if msg.err == nil && msg.status != "" {
			m.status = msg.status
		}
		if msg.reload {
			return m, loadNotesCmd(m.ctx, m.svc)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Record):
		m.status = ""
		if m.snap.State == controller.StateRecording {
			return m, stopRecordingCmd(m.ctx, m.svc)
		}
		return m, startRecordingCmd(m.ctx, m.svc)

	case key.Matches(msg, keys.Play):
		if note, ok := m.selected(); ok {
			return m, playCmd(m.ctx, m.svc, note.ID)
		}

	case key.Matches(msg, keys.Stop):
		return m, transportCmd(m.ctx, m.svc.Stop)

	case key.Matches(msg, keys.Rewind):
		return m, transportCmd(m.ctx, m.svc.Rewind)

	case key.Matches(msg, keys.FastForward):
		return m, transportCmd(m.ctx, m.svc.FastForward)

	case key.Matches(msg, keys.Filter):
		m.mode = modeFilter
		return m, m.filterInput.Focus()

	case key.Matches(msg, keys.Rename):
		if note, ok := m.selected(); ok {
			m.mode = modeRename
			m.renameInput.SetValue(note.Name)
			m.renameInput.CursorEnd()
			return m, m.renameInput.Focus()
		}

	case key.Matches(msg, keys.Delete):
		if _, ok := m.selected(); ok {
			m.mode = modeConfirmDelete
		}

	case key.Matches(msg, keys.Dismiss):
		m.svc.ClearError()
		m.status = ""

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.mode = modeBrowse
		m.applyFilter()
		return m, nil
	case tea.KeyEnter:
		m.filterInput.Blur()
		m.mode = modeBrowse
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.renameInput.Blur()
		m.mode = modeBrowse
		return m, nil
	case tea.KeyEnter:
		m.renameInput.Blur()
		m.mode = modeBrowse
		if note, ok := m.selected(); ok {
			return m, renameCmd(m.ctx, m.svc, note.ID, m.renameInput.Value())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if !key.Matches(msg, keys.Confirm) {
		return m, nil
	}
	if note, ok := m.selected(); ok {
		return m, deleteCmd(m.ctx, m.svc, note)
	}
	return m, nil
}

func (m *Model) applyFilter() {
	m.visible = notes.Filter(m.all, m.filterInput.Value())
	if m.cursor >= len(m.visible) {
		m.cursor = max(0, len(m.visible)-1)
	}
}

func (m Model) selected() (notes.VoiceNote, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return notes.VoiceNote{}, false
	}
	return m.visible[m.cursor], true
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Voice Journal"))
	b.WriteString(" ")
	b.WriteString(countStyle.Render(notes.CountLabel(len(m.all))))
	b.WriteString("\n\n")

	if m.mode == modeFilter || m.filterInput.Value() != "" {
		b.WriteString(m.filterInput.View())
		b.WriteString("\n\n")
	}

	b.WriteString(m.viewList())
	b.WriteString("\n")

	switch {
	case m.snap.State == controller.StateRecording:
		b.WriteString(recordingStyle.Render("● REC " + notes.FormatMillis(m.snap.ElapsedMillis)))
		b.WriteString(mutedStyle.Render("  press r to stop"))
		b.WriteString("\n")
	case m.snap.State == controller.StateStopping:
		b.WriteString(mutedStyle.Render("Saving recording..."))
		b.WriteString("\n")
	case m.snap.Loaded():
		b.WriteString(m.viewPlayer())
		b.WriteString("\n")
	}

	switch m.mode {
	case modeRename:
		b.WriteString(m.renameInput.View())
		b.WriteString("\n")
	case modeConfirmDelete:
		if note, ok := m.selected(); ok {
			b.WriteString(recordingStyle.Render(fmt.Sprintf("Delete %q? (y/N)", note.Name)))
			b.WriteString("\n")
		}
	}

	if errMsg := m.svc.LastError(); errMsg != "" {
		b.WriteString(errorStyle.Render(errMsg + "  (esc to dismiss)"))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m Model) viewList() string {
	if len(m.visible) == 0 {
		if len(m.all) == 0 {
			return mutedStyle.Render("No recordings yet. Press r to record.") + "\n"
		}
		return mutedStyle.Render("No recordings match.") + "\n"
	}

	var b strings.Builder
	for i, n := range m.visible {
		marker := "  "
		if n.ID == m.snap.NoteID {
			if m.snap.Paused {
				marker = "⏸ "
			} else {
				marker = "▶ "
			}
		}
		line := fmt.Sprintf("%s%-28s %6s  %s", marker, n.Name, notes.FormatMillis(n.Duration), humanize.Time(n.Timestamp))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(normalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewPlayer() string {
	name := m.snap.NoteID
	for _, n := range m.all {
		if n.ID == m.snap.NoteID {
			name = n.Name
			break
		}
	}

	filled := 0
	if m.snap.DurationMillis > 0 {
		filled = int(m.snap.PositionMillis * progressWidth / m.snap.DurationMillis)
	}
	filled = max(0, min(filled, progressWidth))
	bar := strings.Repeat("━", filled) + mutedStyle.Render(strings.Repeat("─", progressWidth-filled))

	icon := "▶"
	if m.snap.Paused {
		icon = "⏸"
	}
	return playingStyle.Render(fmt.Sprintf("%s %s ", icon, name)) + bar +
		mutedStyle.Render(fmt.Sprintf(" %s / %s", notes.FormatMillis(m.snap.PositionMillis), notes.FormatMillis(m.snap.DurationMillis)))
}

// Run shows the UI until the user quits.
func Run(ctx context.Context, svc service.Service) error {
	m := New(ctx, svc)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
