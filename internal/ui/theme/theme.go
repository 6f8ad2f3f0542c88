package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Label = lipgloss.NewStyle().
		Foreground(TextDim).
		Width(22)

	Value = lipgloss.NewStyle().
		Foreground(Text).
		Bold(true)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// States
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Remedial = lipgloss.NewStyle().
			Foreground(Accent)

	Weak = lipgloss.NewStyle().
		Foreground(Error)

	Recovered = lipgloss.NewStyle().
			Foreground(Secondary)
)

// Tables
var (
	TableHeader = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			Padding(0, 1)

	TableCell = lipgloss.NewStyle().
			Padding(0, 1)

	TableBorder = lipgloss.NewStyle().
			Foreground(Border)
)
