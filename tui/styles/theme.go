package styles

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Accent  = lipgloss.Color("#0EA5E9")
	Good    = lipgloss.Color("#16A34A")
	Caution = lipgloss.Color("#D97706")
	Bad     = lipgloss.Color("#DC2626")
	Dim     = lipgloss.Color("#6B7280")
	Bright  = lipgloss.Color("#F3F4F6")
)

var (
	Muted   = lipgloss.NewStyle().Foreground(Dim)
	Heading = lipgloss.NewStyle().Bold(true).Foreground(Accent).MarginBottom(1)
	Value   = lipgloss.NewStyle().Bold(true).Foreground(Bright)
	Notice  = lipgloss.NewStyle().Foreground(Good).Bold(true)
	Header  = lipgloss.NewStyle().Bold(true).Foreground(Accent).PaddingRight(2)
	Cell    = lipgloss.NewStyle().PaddingRight(2)
)

// Tab renders a tab label, highlighted when active.
func Tab(label string, active bool) string {
	s := lipgloss.NewStyle().Padding(0, 2)
	if active {
		return s.Bold(true).Underline(true).Foreground(Accent).Render(label)
	}
	return s.Foreground(Dim).Render(label)
}

// Card is a bordered box in the given accent color.
func Card(accent lipgloss.TerminalColor, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(width)
}

// ForStatus colors a run status: completed, failed, anything else is in flight.
func ForStatus(status string) lipgloss.Style {
	switch status {
	case "completed":
		return lipgloss.NewStyle().Foreground(Good)
	case "failed":
		return lipgloss.NewStyle().Foreground(Bad)
	}
	return lipgloss.NewStyle().Foreground(Caution)
}

// ForLevel colors a log level.
func ForLevel(level string) lipgloss.Style {
	switch level {
	case "error":
		return lipgloss.NewStyle().Foreground(Bad).Bold(true)
	case "warn":
		return lipgloss.NewStyle().Foreground(Caution)
	case "info":
		return lipgloss.NewStyle().Foreground(Good)
	}
	return Muted
}
