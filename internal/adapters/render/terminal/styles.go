package terminal

import "github.com/charmbracelet/lipgloss"

type styles struct {
	stamp  lipgloss.Style
	marker lipgloss.Style
	slot   lipgloss.Style
	title  lipgloss.Style
	meta   lipgloss.Style
	card   lipgloss.Style
}

func newStyles() styles {
	return styles{
		stamp:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		marker: lipgloss.NewStyle().Bold(true),
		slot:   lipgloss.NewStyle(),
		title:  lipgloss.NewStyle().Bold(true),
		meta:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		card:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}
