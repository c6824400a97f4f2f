package ui

import "github.com/mattn/go-runewidth"

// truncate cuts s to maxWidth terminal cells, ending in an ellipsis when
// anything was dropped. Wide runes count as two cells.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth-1, "") + "…"
}
