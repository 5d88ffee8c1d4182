package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// SummaryRow is one labeled value in a report block.
type SummaryRow struct {
	Label string
	Value string
}

// RenderSummary renders a two-column component/value table, used by
// doctor, migrate, and the maintenance report commands.
func RenderSummary(title string, rows []SummaryRow, width int) string {
	var sections []string
	sections = append(sections, RenderTitle(title), "")

	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{r.Label, r.Value})
	}

	labelWidth := 24
	t := table.New().
		Rows(tableRows...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Width(width).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := tableCellStyle
			if col == 0 {
				style = style.Bold(true).Foreground(ColorAccent).Width(labelWidth)
			}
			return style
		})
	sections = append(sections, t.String())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// RenderWarningBox renders findings inside a warning-colored border with
// a suggested followup command.
func RenderWarningBox(heading string, findings []string, followup string, width int) string {
	if len(findings) == 0 {
		return ""
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarn).
		Padding(0, 1).
		Width(width - 2)

	var content []string
	content = append(content, lipgloss.NewStyle().Bold(true).Foreground(ColorWarn).Render(heading))
	for _, f := range findings {
		content = append(content, "  • "+f)
	}
	if followup != "" {
		content = append(content, "", "Run "+RenderAccent(followup)+" to resolve.")
	}
	return box.Render(strings.Join(content, "\n"))
}
