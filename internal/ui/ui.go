// Package ui provides styled terminal output helpers.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // blue
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")) // gray
)

// RenderPass styles success markers.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn styles warnings.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail styles errors.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderAccent styles highlights.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderDim styles secondary detail.
func RenderDim(s string) string { return dimStyle.Render(s) }
