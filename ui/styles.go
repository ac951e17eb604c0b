package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mskavach/kavach/model"
)

var (
	// Colors
	colorRed     = lipgloss.Color("#FF5555")
	colorDarkRed = lipgloss.Color("#8B0000")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorOrange  = lipgloss.Color("#FFB86C")
	colorWhite   = lipgloss.Color("#F8F8F2")
	colorBlack   = lipgloss.Color("#282A36")
	colorGray    = lipgloss.Color("#6272A4")
	colorPanel   = lipgloss.Color("#44475A")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	valueStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	warnStyle     = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	headerStyle   = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	selectedStyle = lipgloss.NewStyle().Background(colorPanel).Foreground(colorWhite)
	helpStyle     = lipgloss.NewStyle().Foreground(colorGray)
	dimStyle      = lipgloss.NewStyle().Foreground(colorGray)
	orangeStyle   = lipgloss.NewStyle().Foreground(colorOrange)

	tabStyle       = lipgloss.NewStyle().Foreground(colorGray).Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Foreground(colorBlack).Background(colorCyan).Bold(true).Padding(0, 1)

	distressRowStyle = lipgloss.NewStyle().Background(colorDarkRed).Foreground(colorWhite).Bold(true)

	alarmStyle = lipgloss.NewStyle().
			Background(colorRed).
			Foreground(colorWhite).
			Bold(true).
			Align(lipgloss.Center)
	alarmDimStyle = lipgloss.NewStyle().
			Background(colorDarkRed).
			Foreground(colorWhite).
			Bold(true).
			Align(lipgloss.Center)
)

func phaseStyle(p model.Phase) lipgloss.Style {
	switch p {
	case model.PhaseEdgeAlert:
		return warnStyle
	case model.PhaseEscalation:
		return orangeStyle.Bold(true)
	case model.PhaseControlAlert:
		return critStyle
	default:
		return okStyle
	}
}

// phaseBadge renders the phase as an inverted label.
func phaseBadge(p model.Phase) string {
	fg := phaseStyle(p).GetForeground()
	return lipgloss.NewStyle().
		Background(fg).
		Foreground(colorBlack).
		Bold(true).
		Padding(0, 1).
		Render(p.String())
}
