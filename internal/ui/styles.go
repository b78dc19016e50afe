package ui

import "github.com/charmbracelet/lipgloss"

// Color palette: a single lime accent over grays.
const (
	ColorLime     = "154"
	ColorLimeDim  = "106"
	ColorCyan     = "87"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds all UI styles.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Active  lipgloss.Style
	Label   lipgloss.Style
	Border  lipgloss.Style
	Panel   lipgloss.Style

	// Result tables
	Title      lipgloss.Style
	Fuzzy      lipgloss.Style
	Vector     lipgloss.Style
	ConfHigh   lipgloss.Style
	ConfMedium lipgloss.Style
	ConfLow    lipgloss.Style
}

// DefaultStyles returns coloured styles.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Border:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),

		Title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Fuzzy:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Vector:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorCyan)),
		ConfHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		ConfMedium: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		ConfLow:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header: plain, Success: plain, Warning: plain, Error: plain,
		Dim: plain, Active: plain, Label: plain, Border: plain, Panel: plain,
		Title: plain, Fuzzy: plain, Vector: plain,
		ConfHigh: plain, ConfMedium: plain, ConfLow: plain,
	}
}

// GetStyles returns the styles for the colour preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

// Confidence picks the style for a 0-100 confidence.
func (s Styles) Confidence(c float64) lipgloss.Style {
	switch {
	case c >= 85:
		return s.ConfHigh
	case c >= 50:
		return s.ConfMedium
	default:
		return s.ConfLow
	}
}

// Method picks the style for a match method.
func (s Styles) Method(method string) lipgloss.Style {
	if method == "vector" {
		return s.Vector
	}
	return s.Fuzzy
}
