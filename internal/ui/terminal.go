// Package ui provides terminal styling and output helpers for the brain CLI.
package ui

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal returns true if stdout is connected to a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor determines if ANSI color codes should be used.
// Respects standard conventions:
//   - NO_COLOR / CLICOLOR=0 disable color (https://no-color.org/)
//   - CLICOLOR_FORCE forces color even in non-TTY
//   - Falls back to TTY detection and the terminal's color profile
func ShouldUseColor() bool {
	if termenv.EnvNoColor() {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	return IsTerminal() && termenv.ColorProfile() != termenv.Ascii
}

// GetWidth returns the width of the terminal or a default value.
func GetWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
