package tui

import "github.com/charmbracelet/lipgloss"

var (
	checkedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	uncheckedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle     = lipgloss.NewStyle().Bold(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	normalStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	accentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)

	badgeCompleted = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badgeCurrent   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	badgePending   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)
