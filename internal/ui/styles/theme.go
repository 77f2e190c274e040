package styles

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/planx/internal/models"
)

// Theme represents a color scheme for the application
type Theme struct {
	Name string

	Background    lipgloss.Color
	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	Border      lipgloss.Color
	BorderFocus lipgloss.Color
	Selection   lipgloss.Color
}

// TokyoNight is the default color theme
var TokyoNight = Theme{
	Name: "night",

	Background:    lipgloss.Color("#1a1b26"),
	Foreground:    lipgloss.Color("#c0caf5"),
	ForegroundDim: lipgloss.Color("#565f89"),

	Primary:   lipgloss.Color("#7aa2f7"),
	Secondary: lipgloss.Color("#bb9af7"),
	Accent:    lipgloss.Color("#7dcfff"),

	Success: lipgloss.Color("#9ece6a"),
	Warning: lipgloss.Color("#e0af68"),
	Error:   lipgloss.Color("#f7768e"),
	Info:    lipgloss.Color("#7aa2f7"),

	Border:      lipgloss.Color("#3b4261"),
	BorderFocus: lipgloss.Color("#7aa2f7"),
	Selection:   lipgloss.Color("#33467c"),
}

// TokyoDay is for light terminals
var TokyoDay = Theme{
	Name: "day",

	Background:    lipgloss.Color("#e1e2e7"),
	Foreground:    lipgloss.Color("#3760bf"),
	ForegroundDim: lipgloss.Color("#848cb5"),

	Primary:   lipgloss.Color("#2e7de9"),
	Secondary: lipgloss.Color("#9854f1"),
	Accent:    lipgloss.Color("#007197"),

	Success: lipgloss.Color("#587539"),
	Warning: lipgloss.Color("#8c6c3e"),
	Error:   lipgloss.Color("#f52a65"),
	Info:    lipgloss.Color("#2e7de9"),

	Border:      lipgloss.Color("#a8aecb"),
	BorderFocus: lipgloss.Color("#2e7de9"),
	Selection:   lipgloss.Color("#b7c1e3"),
}

var themes = []Theme{TokyoNight, TokyoDay}

// Current holds the active theme
var Current = TokyoNight

// ThemeNames lists the names Use accepts
func ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}

// Use makes the named theme current. Styles built before the call keep
// their colors.
func Use(name string) error {
	i := slices.IndexFunc(themes, func(t Theme) bool { return strings.EqualFold(t.Name, name) })
	if i < 0 {
		return fmt.Errorf("unknown theme %q, want one of %s", name, strings.Join(ThemeNames(), ", "))
	}
	Current = themes[i]
	return nil
}

// StatusColor is the color a task status is drawn in
func StatusColor(status models.TaskStatus) lipgloss.Color {
	t := Current
	switch status {
	case models.StatusInProgress:
		return t.Info
	case models.StatusCompleted:
		return t.Success
	case models.StatusOnHold:
		return t.Warning
	default:
		return t.ForegroundDim
	}
}

// TagColor gives every tag a stable color
func TagColor(id int64) lipgloss.Color {
	t := Current
	palette := []lipgloss.Color{t.Secondary, t.Accent, t.Success, t.Warning, t.Error, t.Primary}
	if id < 0 {
		id = -id
	}
	return palette[id%int64(len(palette))]
}

// MaxWidth is the maximum content width for the app (classic terminal width)
const MaxWidth = 80

// ContentWidth returns the actual content width to use (min of terminal width and MaxWidth)
func ContentWidth(terminalWidth int) int {
	return min(terminalWidth, MaxWidth)
}

// CenterView centers content horizontally if the terminal is wider than MaxWidth
func CenterView(content string, terminalWidth, terminalHeight int) string {
	if terminalWidth <= MaxWidth {
		return content
	}
	return lipgloss.Place(terminalWidth, terminalHeight,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// Styles holds all the pre-computed styles for the UI
type Styles struct {
	Title      lipgloss.Style
	TitleMuted lipgloss.Style

	ListItem     lipgloss.Style
	ListSelected lipgloss.Style

	// bordered popups and the tag dropdown
	FilterBar lipgloss.Style

	Button        lipgloss.Style
	ButtonFocused lipgloss.Style
	ButtonPrimary lipgloss.Style

	TaskID     lipgloss.Style
	TaskStatus lipgloss.Style

	// media links in comments
	Link lipgloss.Style

	Input        lipgloss.Style
	InputFocused lipgloss.Style

	Help    lipgloss.Style
	HelpKey lipgloss.Style

	Error lipgloss.Style
}

// NewStyles creates styles based on the current theme
func NewStyles() *Styles {
	t := Current

	bordered := func(border lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border)
	}

	return &Styles{
		Title: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		TitleMuted: lipgloss.NewStyle().
			Foreground(t.ForegroundDim),

		ListItem: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Padding(0, 2),

		ListSelected: lipgloss.NewStyle().
			Foreground(t.Primary).
			Background(t.Selection).
			Padding(0, 2).
			Bold(true),

		FilterBar: bordered(t.Border).
			Padding(0, 1),

		Button: bordered(t.Border).
			Foreground(t.Foreground).
			Padding(0, 2),

		ButtonFocused: bordered(t.BorderFocus).
			Foreground(t.Primary).
			Padding(0, 2).
			Bold(true),

		ButtonPrimary: lipgloss.NewStyle().
			Foreground(t.Background).
			Background(t.Primary).
			Padding(0, 2).
			Bold(true),

		TaskID: lipgloss.NewStyle().
			Foreground(t.Secondary),

		TaskStatus: lipgloss.NewStyle().
			Bold(true),

		Link: lipgloss.NewStyle().
			Foreground(t.Accent).
			Underline(true),

		Input: bordered(t.Border).
			Foreground(t.Foreground).
			Padding(0, 1),

		InputFocused: bordered(t.BorderFocus).
			Foreground(t.Foreground).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Padding(1, 2),

		HelpKey: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(t.Error).
			Padding(0, 1),
	}
}
