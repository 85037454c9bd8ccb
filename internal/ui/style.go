package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	colorPink     = lipgloss.Color("205")
	colorDarkGray = lipgloss.Color("240")
	colorCyan     = lipgloss.Color("212")
	colorGreen    = lipgloss.Color("42")
	colorRed      = lipgloss.Color("196")
)

var (
	DocStyle       = lipgloss.NewStyle().Margin(1, 2)
	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	BoxStyle       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(colorDarkGray).Padding(0, 1)
	HighlightStyle = lipgloss.NewStyle().Foreground(colorCyan)
	SuccessStyle   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	ErrorStyle     = lipgloss.NewStyle().Foreground(colorRed)
	HelpStyle      = lipgloss.NewStyle().Faint(true)
)

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorPink)
	return s
}

// padRight pads or truncates a string to a fixed display width.
func padRight(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w > width {
		return runewidth.Truncate(str, width, "...")
	}
	return str + strings.Repeat(" ", width-w)
}
