package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorLavender)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorOverlay1)
	labelStyle   = lipgloss.NewStyle().Foreground(colorSubtext0)
	focusStyle   = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	codeStyle    = lipgloss.NewStyle().Foreground(colorPeach).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colorGreen)
	warningStyle = lipgloss.NewStyle().Foreground(colorYellow)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	barFillStyle = lipgloss.NewStyle().Foreground(colorTeal)
	barRestStyle = lipgloss.NewStyle().Foreground(colorSurface1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Padding(0, 1)
)
