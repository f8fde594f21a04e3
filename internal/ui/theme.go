package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/deltasync/internal/config"
)

// Theme holds the report colors. The zero Theme renders without styling.
type Theme struct {
	Accent lipgloss.Color
	Good   lipgloss.Color
	Bad    lipgloss.Color
	Muted  lipgloss.Color
	Bright lipgloss.Color
}

// DefaultTheme is the Catppuccin Mocha palette.
func DefaultTheme() Theme {
	return Theme{
		Accent: lipgloss.Color("#94e2d5"),
		Good:   lipgloss.Color("#a6e3a1"),
		Bad:    lipgloss.Color("#f38ba8"),
		Muted:  lipgloss.Color("#5a6278"),
		Bright: lipgloss.Color("#cdd6f4"),
	}
}

// WithOverrides returns t with any colors set in tc replaced.
func (t Theme) WithOverrides(tc config.ThemeConfig) Theme {
	if tc.Accent != nil {
		t.Accent = lipgloss.Color(*tc.Accent)
	}
	if tc.Good != nil {
		t.Good = lipgloss.Color(*tc.Good)
	}
	if tc.Bad != nil {
		t.Bad = lipgloss.Color(*tc.Bad)
	}
	if tc.Muted != nil {
		t.Muted = lipgloss.Color(*tc.Muted)
	}
	if tc.Bright != nil {
		t.Bright = lipgloss.Color(*tc.Bright)
	}
	return t
}

type styles struct {
	label  lipgloss.Style
	number lipgloss.Style
	good   lipgloss.Style
	bad    lipgloss.Style
	path   lipgloss.Style
}

func (t Theme) styles() styles {
	return styles{
		label:  lipgloss.NewStyle().Foreground(t.Muted),
		number: lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		good:   lipgloss.NewStyle().Bold(true).Foreground(t.Good),
		bad:    lipgloss.NewStyle().Bold(true).Foreground(t.Bad),
		path:   lipgloss.NewStyle().Foreground(t.Bright),
	}
}

// plainStyles leaves every string untouched.
func plainStyles() styles {
	s := lipgloss.NewStyle()
	return styles{label: s, number: s, good: s, bad: s, path: s}
}
