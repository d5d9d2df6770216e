package ui

import "github.com/charmbracelet/lipgloss"

// Styles groups every lipgloss style the screens share.
type Styles struct {
	Header    lipgloss.Style
	Footer    lipgloss.Style
	Pane      lipgloss.Style
	ActiveTab lipgloss.Style
	Tab       lipgloss.Style

	Title    lipgloss.Style
	Subtle   lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Selected lipgloss.Style

	UserLine      lipgloss.Style
	AssistantLine lipgloss.Style
	FailedLine    lipgloss.Style

	Listening lipgloss.Style
	Starting  lipgloss.Style
}

// NewStyles builds the default color scheme.
func NewStyles() *Styles {
	return &Styles{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Bold(true).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 1),

		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),

		ActiveTab: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Bold(true).
			Padding(0, 2),

		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 2),

		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true),

		Subtle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")),

		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("240")),

		UserLine: lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")),

		AssistantLine: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		FailedLine: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Italic(true),

		Listening: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		Starting: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
	}
}
