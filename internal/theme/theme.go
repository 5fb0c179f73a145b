package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for table headers and the picker title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// CellStyle pads ordinary table cells.
var CellStyle = lipgloss.NewStyle().Padding(0, 1)

// KeyStyle highlights issue keys and version names.
var KeyStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle is used for the final error line on stderr.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// StatusStyle returns a color-coded style for a Jira status category key
// ("new", "indeterminate", "done").
func StatusStyle(category string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch category {
	case "new":
		return base.Foreground(ColorBlue)
	case "indeterminate":
		return base.Foreground(ColorYellow)
	case "done":
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// PriorityStyle returns a color-coded style for a Jira priority name.
// Both the classic (Blocker..Trivial) and the newer (Highest..Lowest)
// schemes are recognized.
func PriorityStyle(priority string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch strings.ToLower(priority) {
	case "blocker", "highest":
		return base.Foreground(ColorRed)
	case "critical", "high":
		return base.Foreground(ColorOrange)
	case "major", "medium":
		return base.Foreground(ColorYellow)
	case "minor", "low":
		return base.Foreground(ColorBlue)
	case "trivial", "lowest":
		return base.Foreground(ColorGray)
	default:
		return base.Foreground(ColorGray)
	}
}

// ReleaseStyle colors a version row by state.
func ReleaseStyle(released, archived bool) lipgloss.Style {
	switch {
	case archived:
		return CellStyle.Foreground(ColorGray)
	case released:
		return CellStyle.Foreground(ColorGreen)
	default:
		return CellStyle.Foreground(ColorMagenta)
	}
}
