package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/y-ui/yuictl/internal/notification"
)

// Console palette
var (
	ColorAccent = lipgloss.Color("#7AA2F7") // links, active menu
	ColorMid    = lipgloss.Color("#565F89") // borders, secondary text
	ColorDark   = lipgloss.Color("#1A1B26")
	ColorText   = lipgloss.Color("#C0CAF5")
	ColorAlert  = lipgloss.Color("#F7768E")
	ColorGood   = lipgloss.Color("#9ECE6A")
	ColorWarn   = lipgloss.Color("#E0AF68")
	ColorMuted  = lipgloss.Color("#737AA2")
)

// Styles
var (
	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(ColorMid).
			Padding(0, 1)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)

	StyleStatusGood = lipgloss.NewStyle().Foreground(ColorGood).Bold(true)
	StyleStatusBad  = lipgloss.NewStyle().Foreground(ColorAlert).Bold(true)
	StyleStatusWarn = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)

	StyleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMid).
			Padding(0, 1).
			Margin(0, 1)

	StyleApp = lipgloss.NewStyle().Margin(1, 2)

	StyleTopBar = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(ColorMid).
			Padding(0, 1).
			MarginBottom(1)

	StyleMenuItem = lipgloss.NewStyle().
			Foreground(ColorMid).
			Padding(0, 1)

	StyleMenuItemActive = lipgloss.NewStyle().
				Foreground(ColorDark).
				Background(ColorAccent).
				Bold(true).
				Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Faint(true)

	StyleIdentity = lipgloss.NewStyle().
			Foreground(ColorMuted).
			PaddingLeft(2)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1)

	StyleToast = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// toastStyle colors a toast by notification level.
func toastStyle(level string) lipgloss.Style {
	switch level {
	case notification.LevelError:
		return StyleToast.BorderForeground(ColorAlert).Foreground(ColorAlert)
	case notification.LevelWarning:
		return StyleToast.BorderForeground(ColorWarn).Foreground(ColorWarn)
	case notification.LevelSuccess:
		return StyleToast.BorderForeground(ColorGood).Foreground(ColorGood)
	default:
		return StyleToast.BorderForeground(ColorMid).Foreground(ColorText)
	}
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMid).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorAccent).
		Background(ColorDark).
		Bold(false)
	return s
}
