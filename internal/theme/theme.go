// Package theme centralizes the terminal styling shared by the scan
// summary and the unsubscribe output.
package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorCyan   = lipgloss.AdaptiveColor{Dark: "#4DD0E1", Light: "#00838F"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
)

// TitleStyle is used for section headers in command output.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue).
	MarginTop(1)

// LabelStyle is used for counter labels and secondary text.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// CountStyle is used for numeric counters.
var CountStyle = lipgloss.NewStyle().
	Bold(true)

// DomainStyle highlights sender domains.
var DomainStyle = lipgloss.NewStyle().
	Foreground(ColorCyan)

// ResultStyle returns a color-coded style for an unsubscribe outcome
// result name.
func ResultStyle(result string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch result {
	case "Success":
		return base.Foreground(ColorGreen)
	case "Failed":
		return base.Foreground(ColorRed)
	case "ManualRequired":
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGray)
	}
}
