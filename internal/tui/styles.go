package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#1f6fb2")).
			Padding(0, 1)

	viewInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#333333"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5fafff"))

	folderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0087d7")).
			Bold(true)

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbbbbb"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cc0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00af5f"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d7af00"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#dddddd")).
			Background(lipgloss.Color("#262626"))

	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#999999"))
)
