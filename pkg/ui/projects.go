package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/casegraph/pkg/model"
)

// filterOrder lists the project filters in tab order: "all" first, then
// projects as the store returned them.
func filterOrder(projects []model.Project) []string {
	order := make([]string, 0, len(projects)+1)
	order = append(order, model.FilterAll)
	for _, p := range projects {
		if p.ID != "" && p.ID != model.FilterAll {
			order = append(order, p.ID)
		}
	}
	return order
}

// cycleFilter returns the filter dir steps away from current, wrapping.
// An unknown current filter starts from "all".
func cycleFilter(projects []model.Project, current string, dir int) string {
	order := filterOrder(projects)
	i := 0
	for j, id := range order {
		if id == current {
			i = j
			break
		}
	}
	n := len(order)
	return order[((i+dir)%n+n)%n]
}

// cycleLabel steps through the entity labels. Stepping past either end
// returns "", which leaves label mode.
func cycleLabel(current model.Label, dir int) model.Label {
	order := append([]model.Label{""}, model.Labels...)
	i := 0
	for j, l := range order {
		if l == current {
			i = j
			break
		}
	}
	n := len(order)
	return order[((i+dir)%n+n)%n]
}

// renderProjectBar draws the filter tabs, keeping the active tab visible
// when they don't fit in width.
func renderProjectBar(projects []model.Project, current string, searching bool, width int, t Theme) string {
	names := map[string]string{model.FilterAll: "all projects"}
	for _, p := range projects {
		names[p.ID] = p.DisplayName()
	}

	order := filterOrder(projects)
	tabs := make([]string, len(order))
	active := -1
	for i, id := range order {
		label := truncate(names[id], 24)
		if id == current && !searching {
			active = i
			tabs[i] = t.TabActive.Render(label)
		} else {
			tabs[i] = t.Tab.Render(label)
		}
	}

	start := 0
	for start < active && lipgloss.Width(strings.Join(tabs[start:active+1], "")) > width {
		start++
	}
	var sb strings.Builder
	used := 0
	for _, tab := range tabs[start:] {
		w := lipgloss.Width(tab)
		if used+w > width {
			break
		}
		sb.WriteString(tab)
		used += w
	}
	return sb.String()
}
