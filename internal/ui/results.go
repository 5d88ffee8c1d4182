package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pmbrain/brain/internal/types"
)

// RenderQueryResults renders ranked lookup results as a bordered table:
// rank, id, score, and how each result was reached.
func RenderQueryResults(query string, results []types.QueryResult, width int) string {
	var sections []string

	header := fmt.Sprintf("Search: %q", query)
	sections = append(sections, RenderTitle(header), "")

	if len(results) == 0 {
		sections = append(sections, RenderWarn("No matches."))
		sections = append(sections, RenderMuted("Try fewer terms, or an alias the entity is known by."))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	t := NewTable(width, fmt.Sprintf("Found %d entities", len(results)))
	for i, r := range results {
		line := fmt.Sprintf("%d. [%s] %.2f  %s", i+1, r.ID, r.Score, strings.Join(r.Reasons, "; "))
		t.Row(line)
	}
	sections = append(sections, t.String())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// RenderNeighbors renders graph-expanded results grouped under the seed
// matches that reached them.
func RenderNeighbors(neighbors []string, width int) string {
	if len(neighbors) == 0 {
		return ""
	}
	t := NewTable(width, "Graph neighbors")
	for i, n := range neighbors {
		t.Row(fmt.Sprintf("%d. %s", i+1, n))
	}
	return t.String()
}
