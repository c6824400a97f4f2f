package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/casegraph/pkg/analysis"
	"github.com/vanderheijden86/casegraph/pkg/model"
)

// maxDetailEdges caps the relationship list in the detail pane.
const maxDetailEdges = 12

// detailPane renders node details as markdown. It is shared by pointer
// across Model copies so the renderer and last output are reused.
type detailPane struct {
	width int
	md    *glamour.TermRenderer
	key   string
	out   string
}

func newDetailPane(width int) *detailPane {
	p := &detailPane{}
	p.setWidth(width)
	return p
}

func (p *detailPane) setWidth(width int) {
	if width == p.width && p.md != nil {
		return
	}
	p.width = width
	style := "dracula"
	if TermProfile <= colorprofile.ASCII {
		style = "notty"
	}
	// A nil renderer falls back to raw markdown in render.
	p.md, _ = glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-4, 10)),
	)
	p.key = ""
}

// render returns the pane body for node id within snap. gen is the
// controller generation snap was committed under; a refresh can change
// properties without changing any count.
func (p *detailPane) render(snap model.Snapshot, gen uint64, id string, selected bool) string {
	key := fmt.Sprintf("%d|%s|%v|%d|%d", gen, id, selected, snap.NodeCount(), snap.EdgeCount())
	if key == p.key {
		return p.out
	}
	src := nodeMarkdown(snap, id, selected)
	out := src
	if p.md != nil {
		if rendered, err := p.md.Render(src); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	p.key, p.out = key, out
	return out
}

// nodeMarkdown describes one node: its label, properties and relationships.
func nodeMarkdown(snap model.Snapshot, id string, selected bool) string {
	n, ok := snap.Node(id)
	if !ok {
		return "_No node under the cursor._\n\nUse **j**/**k** to move, **space** to select."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", escapeMD(n.DisplayName()))
	fmt.Fprintf(&sb, "**%s** · `%s`", n.Label.Normalize(), n.ID)
	if selected {
		sb.WriteString(" · selected")
	}
	sb.WriteString("\n\n")
	for i, r := range analysis.Build(snap).PageRank() {
		if r.ID == n.ID {
			fmt.Fprintf(&sb, "Rank **#%d** of %d by PageRank\n\n", i+1, snap.NodeCount())
			break
		}
	}

	if len(n.Properties) > 0 {
		keys := make([]string, 0, len(n.Properties))
		for k := range n.Properties {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		sb.WriteString("| property | value |\n|---|---|\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "| %s | %s |\n", escapeMD(k), escapeMD(fmt.Sprint(n.Properties[k])))
		}
		sb.WriteString("\n")
	}

	index := snap.NodeIndex()
	var rels []string
	for _, e := range snap.Edges {
		if !e.Touches(n.ID) || e.Dangling(index) {
			continue
		}
		other, _ := snap.Node(e.Other(n.ID))
		arrow := "→"
		if e.Target == n.ID && e.Source != n.ID {
			arrow = "←"
		}
		rels = append(rels, fmt.Sprintf("- %s `%s` %s", arrow, e.Type, escapeMD(other.DisplayName())))
	}
	fmt.Fprintf(&sb, "### Relationships (%d)\n\n", len(rels))
	if len(rels) == 0 {
		sb.WriteString("_none_\n")
	}
	for i, r := range rels {
		if i == maxDetailEdges {
			fmt.Fprintf(&sb, "- … and %d more\n", len(rels)-maxDetailEdges)
			break
		}
		sb.WriteString(r + "\n")
	}
	return sb.String()
}

var mdEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "'", "\n", " ")

func escapeMD(s string) string {
	return mdEscaper.Replace(s)
}
