package tui

import "github.com/charmbracelet/lipgloss"

var (
	Primary   = lipgloss.Color("#22d3ee")
	Secondary = lipgloss.Color("#7C3AED")
	Success   = lipgloss.Color("#10B981")
	Warning   = lipgloss.Color("#F59E0B")
	Error     = lipgloss.Color("#EF4444")
	Muted     = lipgloss.Color("#6B7280")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Background(lipgloss.Color("#1F2937")).
			Padding(0, 2)

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9FAFB")).
			Padding(0, 1).
			Bold(true)

	peerStyle    = lipgloss.NewStyle().Foreground(Secondary)
	mutedStyle   = lipgloss.NewStyle().Foreground(Muted)
	warningStyle = lipgloss.NewStyle().Foreground(Warning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(Error).Bold(true)
	selfStyle    = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	otherStyle   = lipgloss.NewStyle().Foreground(Success).Bold(true)

	logStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted)

	footerStyle = lipgloss.NewStyle().Foreground(Muted)
)

func stateColor(state string) lipgloss.Color {
	switch state {
	case "connected":
		return Success
	case "negotiating", "awaiting-peer":
		return Warning
	case "peer-left":
		return Error
	default:
		return Muted
	}
}
