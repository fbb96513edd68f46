package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#bd93f9"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6272a4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272a4")).
			Width(10)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f8f8f2"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5555"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272a4"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#58a6ff"))

	// sourceStyles color the source kind so remote hits and fallbacks stand apart.
	sourceStyles = map[string]lipgloss.Style{
		"remote-thumbnail": lipgloss.NewStyle().Foreground(lipgloss.Color("#50fa7b")),
		"remote-direct":    lipgloss.NewStyle().Foreground(lipgloss.Color("#8be9fd")),
		"local":            lipgloss.NewStyle().Foreground(lipgloss.Color("#f8f8f2")),
		"local-fallback":   lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb86c")),
	}
)

func sourceStyle(kind string) lipgloss.Style {
	if s, ok := sourceStyles[kind]; ok {
		return s
	}
	return valueStyle
}
