package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table Styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorAccent).
				Align(lipgloss.Center)

	TableBorderStyle = lipgloss.NewStyle().
				Foreground(ColorMuted)

	tableCellStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Align(lipgloss.Left)
)

// NewTable creates a bordered table with the shared styling.
func NewTable(width int, headers ...string) *table.Table {
	return table.New().
		Headers(headers...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Width(width).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return tableCellStyle
		})
}
