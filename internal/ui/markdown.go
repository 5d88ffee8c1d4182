package ui

import "github.com/charmbracelet/glamour"

// RenderMarkdown renders an entity body for terminal display. Falls back
// to the raw text when rendering fails or stdout is not a TTY.
func RenderMarkdown(body string, width int) string {
	if !IsTerminal() {
		return body
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return body
	}
	out, err := r.Render(body)
	if err != nil {
		return body
	}
	return out
}
