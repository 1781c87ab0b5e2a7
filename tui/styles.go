package tui

import (
	"github.com/charmbracelet/lipgloss"

	"chorus/groupware/models"
)

var (
	dotOnline  = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render("●")
	dotAway    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("●")
	dotDND     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("●")
	dotOffline = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("○")

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	toastStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("160")).
			Padding(0, 1).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// StatusDot returns the colored indicator for a status type.
func StatusDot(t models.StatusType) string {
	switch t {
	case models.StatusOnline:
		return dotOnline
	case models.StatusAway:
		return dotAway
	case models.StatusDND:
		return dotDND
	default:
		return dotOffline
	}
}
