package main

import "github.com/charmbracelet/lipgloss"

// Palette shared by the graph output and the configure prompt.
const (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorMuted     = lipgloss.Color("#6B7280")
	colorSuccess   = lipgloss.Color("#10B981")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorHighlight = lipgloss.Color("#3B82F6")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	invalidStyle  = lipgloss.NewStyle().Foreground(colorWarning)
	itemTypeStyle = lipgloss.NewStyle().Foreground(colorHighlight)
)
