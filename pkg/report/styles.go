package report

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors adapt to light and dark terminals.
var (
	successColor = lipgloss.AdaptiveColor{Light: "#28A745", Dark: "#4CDD76"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#DC3545", Dark: "#FF6B7D"}
	warningColor = lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFD54F"}
	infoColor    = lipgloss.AdaptiveColor{Light: "#17A2B8", Dark: "#4DD0E1"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6C757D", Dark: "#ADB5BD"}
	pathColor    = lipgloss.AdaptiveColor{Light: "#6C757D", Dark: "#A0A8B0"}
)

type styles struct {
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	muted   lipgloss.Style
	path    lipgloss.Style
}

// newStyles binds the styles to r so colour is only emitted when the
// writer behind r is a terminal.
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		success: r.NewStyle().Foreground(successColor).Bold(true),
		failure: r.NewStyle().Foreground(errorColor).Bold(true),
		warning: r.NewStyle().Foreground(warningColor).Bold(true),
		info:    r.NewStyle().Foreground(infoColor),
		muted:   r.NewStyle().Foreground(mutedColor),
		path:    r.NewStyle().Foreground(pathColor).Italic(true),
	}
}
