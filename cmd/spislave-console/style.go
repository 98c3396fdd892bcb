package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// colorEnabled reports whether stdout is a terminal and color was not
// turned off.
func colorEnabled() bool {
	return !noColor && term.IsTerminal(int(os.Stdout.Fd()))
}

// highlight colors result and section lines of the firmware output.
func highlight(line string, color bool) string {
	if !color {
		return line
	}
	t := strings.TrimSpace(line)
	switch {
	case t == "PASS" || strings.HasPrefix(t, "[PASS]"):
		return passStyle.Render(line)
	case strings.HasPrefix(t, "FAIL") || strings.HasPrefix(t, "[FAIL]") || strings.HasPrefix(t, "fatal:"):
		return failStyle.Render(line)
	case strings.HasPrefix(t, "[Test]") || strings.HasPrefix(t, "[phase]") || t == "Summary":
		return headerStyle.Render(line)
	}
	return line
}
