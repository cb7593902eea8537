package ui

import "github.com/charmbracelet/lipgloss"

const barFillHex = "#5F87FF"

var (
	panelBorder     = lipgloss.RoundedBorder()
	panelTitleStyle = lipgloss.NewStyle().Bold(true)

	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	questionStyle     = activeStyle.Copy().Bold(true)
	defaultInputStyle = mutedStyle
	answerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	selectedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)
