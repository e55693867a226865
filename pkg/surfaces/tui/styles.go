package tui

import "github.com/charmbracelet/lipgloss"

// Centralized style definitions for the TUI.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")) // blue
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")) // magenta
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))            // red
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))            // green
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))            // gray
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))            // red
)

const (
	cursorMark   = "▸ "
	noCursorMark = "  "
	activeMark   = "● "
	inactiveMark = "○ "
)
