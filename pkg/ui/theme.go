package ui

import (
	"fmt"
	"image/color"
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/casegraph/pkg/export"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/scene"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

func hexOf(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorBorder  = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorDim     = lipgloss.AdaptiveColor{Light: "#C8C8C8", Dark: "#3A3C4E"}
)

// Theme holds the pre-computed styles for one renderer.
type Theme struct {
	Renderer *lipgloss.Renderer

	Header      lipgloss.Style
	Title       lipgloss.Style
	Muted       lipgloss.Style
	Info        lipgloss.Style
	Error       lipgloss.Style
	Tab         lipgloss.Style
	TabActive   lipgloss.Style
	Panel       lipgloss.Style
	Cursor      lipgloss.Style
	NodeLabel   lipgloss.Style
	EdgeNormal  lipgloss.Style
	EdgeDimmed  lipgloss.Style
	EdgeHot     lipgloss.Style
	NodeDimmed  lipgloss.Style
	nodeByClass map[string]lipgloss.Style
	nodeUnknown lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired theme. Node colors match the
// exported SVG/PNG palette so a screenshot and an export look alike.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{Renderer: r}

	t.Header = r.NewStyle().
		Background(ColorPrimary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	t.Title = r.NewStyle().Foreground(ColorText).Bold(true)
	t.Muted = r.NewStyle().Foreground(ColorMuted)
	t.Info = r.NewStyle().Foreground(ColorInfo)
	t.Error = r.NewStyle().Foreground(ColorDanger).Bold(true)
	t.Tab = r.NewStyle().Foreground(ColorMuted).Padding(0, 1)
	t.TabActive = r.NewStyle().Foreground(ColorPrimary).Bold(true).Underline(true).Padding(0, 1)
	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
	t.Cursor = r.NewStyle().Reverse(true).Bold(true)
	t.NodeLabel = r.NewStyle().Foreground(ColorText)
	t.EdgeNormal = r.NewStyle().Foreground(ColorMuted)
	t.EdgeDimmed = r.NewStyle().Foreground(ColorDim)
	t.EdgeHot = r.NewStyle().Foreground(ThemeFg(hexOf(export.EdgeColor(scene.Edge{Highlighted: true})))).Bold(true)
	t.NodeDimmed = r.NewStyle().Foreground(ColorDim)

	t.nodeByClass = make(map[string]lipgloss.Style, len(model.Labels))
	for _, l := range model.Labels {
		class := scene.NodeClass(l)
		t.nodeByClass[class] = r.NewStyle().Foreground(ThemeFg(hexOf(export.NodeColor(class)))).Bold(true)
	}
	t.nodeUnknown = r.NewStyle().Foreground(ThemeFg(hexOf(export.NodeColor("node-unknown"))))
	return t
}

// NodeStyle returns the glyph style for a node class.
func (t Theme) NodeStyle(class string, dimmed bool) lipgloss.Style {
	if dimmed {
		return t.NodeDimmed
	}
	if s, ok := t.nodeByClass[class]; ok {
		return s
	}
	return t.nodeUnknown
}
