package ui

import "github.com/charmbracelet/lipgloss"

// YouTube-ish dark theme colours.
const (
	colorBrand  = lipgloss.Color("#FF4E45")
	colorSaved  = lipgloss.Color("#3EA6FF")
	colorError  = lipgloss.Color("#FF0000")
	colorMuted  = lipgloss.Color("#FFA500")
	colorSubtle = lipgloss.Color("#717171")
	colorText   = lipgloss.Color("#F1F1F1")
)

var styles = newTheme()

// theme holds the styles of the swipe screens.
type theme struct {
	title     lipgloss.Style // screen headers
	cardTitle lipgloss.Style // video title inside the card
	card      lipgloss.Style // bordered video card
	ok        lipgloss.Style // saves and "already in" badges
	err       lipgloss.Style
	warn      lipgloss.Style // mutes and no-op actions
	help      lipgloss.Style // metadata and hints
}

func newTheme() theme {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return theme{
		title:     fg(colorBrand).Bold(true).MarginBottom(1),
		cardTitle: fg(colorText).Bold(true),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBrand).
			Padding(1, 2),
		ok:   fg(colorSaved).Bold(true),
		err:  fg(colorError).Bold(true),
		warn: fg(colorMuted),
		help: fg(colorSubtle).Italic(true),
	}
}
