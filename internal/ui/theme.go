package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/breadtm/examtie/internal/prefs"
)

// Theme defines the colors for one UI appearance.
type Theme struct {
	Name string

	Text          string
	Muted         string
	Accent        string
	Success       string
	Danger        string
	Border        string
	SelectionBg   string
	SelectionText string
}

var themes = map[string]Theme{
	prefs.ThemeDark: {
		Name:          prefs.ThemeDark,
		Text:          "#f8f8f2",
		Muted:         "#6272a4",
		Accent:        "#8be9fd",
		Success:       "#50fa7b",
		Danger:        "#ff5555",
		Border:        "#44475a",
		SelectionBg:   "#44475a",
		SelectionText: "#f8f8f2",
	},
	prefs.ThemeLight: {
		Name:          prefs.ThemeLight,
		Text:          "#282a36",
		Muted:         "#7f8490",
		Accent:        "#0184bc",
		Success:       "#50a14f",
		Danger:        "#e45649",
		Border:        "#d0d0d0",
		SelectionBg:   "#d0d7de",
		SelectionText: "#282a36",
	},
}

// GetTheme returns the named theme, defaulting to dark.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[prefs.ThemeDark]
}

// Styles contains pre-built lipgloss styles for a theme.
type Styles struct {
	Text     lipgloss.Style
	Muted    lipgloss.Style
	Accent   lipgloss.Style
	Success  lipgloss.Style
	Danger   lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style
	Box      lipgloss.Style
}

// Styles builds the lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		Accent: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),
		Danger: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true).
			Padding(0, 1),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),
	}
}
