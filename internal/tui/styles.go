package tui

import "github.com/charmbracelet/lipgloss"

// Color palette (Catppuccin Mocha).
var (
	colorText     = lipgloss.Color("#CDD6F4") // primary text
	colorSubtext  = lipgloss.Color("#A6ADC8") // secondary text
	colorDim      = lipgloss.Color("#585B70") // muted, borders
	colorSurface1 = lipgloss.Color("#45475A") // gauge track, chart axis

	colorAccent   = lipgloss.Color("#CBA6F7") // mauve, brand accent
	colorBlue     = lipgloss.Color("#89B4FA") // section headers
	colorGreen    = lipgloss.Color("#A6E3A1") // OK / healthy
	colorYellow   = lipgloss.Color("#F9E2AF") // warning
	colorRed      = lipgloss.Color("#F38BA8") // critical
	colorLavender = lipgloss.Color("#B4BEFE") // titles

	colorOK   = colorGreen
	colorWarn = colorYellow
	colorCrit = colorRed
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender)

	headerBrandStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorAccent)

	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorBlue)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	gaugeTrackStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	critStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	chartAxisStyle = lipgloss.NewStyle().
			Foreground(colorSurface1)

	chartLabelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	chartBarStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	chartActiveBarStyle = lipgloss.NewStyle().
				Foreground(colorAccent)
)
