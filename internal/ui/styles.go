package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Palette shared by every renderer.
var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "27", Dark: "39"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "124", Dark: "196"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "243", Dark: "245"}
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	accentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// RenderPass styles text as success when color is enabled.
func RenderPass(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return passStyle.Render(s)
}

// RenderWarn styles text as a warning when color is enabled.
func RenderWarn(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return warnStyle.Render(s)
}

// RenderFail styles text as a failure when color is enabled.
func RenderFail(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return failStyle.Render(s)
}

// RenderMuted styles text as secondary detail when color is enabled.
func RenderMuted(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return mutedStyle.Render(s)
}

// RenderAccent styles text as emphasized when color is enabled.
func RenderAccent(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return accentStyle.Render(s)
}

// RenderTitle styles a section heading.
func RenderTitle(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return titleStyle.Render(s)
}

// IssueLine formats one validation finding: "ERROR [field]: message".
func IssueLine(severity, field, message string) string {
	line := fmt.Sprintf("%s [%s]: %s", severity, field, message)
	switch severity {
	case "ERROR":
		return RenderFail(line)
	case "WARN":
		return RenderWarn(line)
	}
	return line
}
