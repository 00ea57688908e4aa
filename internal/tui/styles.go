package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title  lipgloss.Style
	faint  lipgloss.Style
	rating lipgloss.Style
	status lipgloss.Style
	errors lipgloss.Style
	dialog lipgloss.Style
	modal  lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E8C07D")),
		faint:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		rating: lipgloss.NewStyle().Foreground(lipgloss.Color("#F2B134")),
		status: lipgloss.NewStyle().Foreground(lipgloss.Color("#7FB685")),
		errors: lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")),
		dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#E06C75")).
			Padding(1, 2),
		modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#61AFEF")).
			Padding(1, 2),
	}
}
