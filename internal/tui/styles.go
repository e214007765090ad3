package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f59e0b")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0")).
			Padding(0, 1)

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80"))

	adminStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4a844"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#b45555"))

	borderColor = lipgloss.Color("#505868")
)

// gameColors tints the game names in listings.
var gameColors = map[string]lipgloss.Color{
	"strength": lipgloss.Color("#e06060"),
	"mind":     lipgloss.Color("#b080d0"),
	"chance":   lipgloss.Color("#22d3ee"),
}
