package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#EF4444")
	colorGreen  = lipgloss.Color("#10B981")
	colorCyan   = lipgloss.Color("#0891B2")
	colorMuted  = lipgloss.Color("#64748B")
	colorText   = lipgloss.Color("#F8FAFC")
	colorAccent = lipgloss.Color("#7C3AED")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Background(colorAccent).
			Padding(0, 1)

	countStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	normalStyle = lipgloss.NewStyle().
			Foreground(colorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	recordingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	playingStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRed).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorGreen)
)
