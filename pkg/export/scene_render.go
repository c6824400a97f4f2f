// Package export writes scenes to SVG, PNG and JSON files for reports and
// for tooling that cannot run the terminal view.
package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	json "github.com/goccy/go-json"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/scene"
)

// Format is an export file format.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatJSON Format = "json"
)

// headerHeight is the summary strip drawn above the graph in SVG and PNG.
const headerHeight = 96

// SceneOptions controls scene export.
type SceneOptions struct {
	Path   string      // Output path; format inferred from extension when Format empty
	Format string      // "svg", "png" or "json" (case-insensitive)
	Scene  scene.Scene // Scene to render
}

// ResolveFormat returns the format for opts and the path to write. An empty
// format is inferred from the extension; a path without one gets ".svg".
func ResolveFormat(path, format string) (Format, string, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(format, ".")))
	if f == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			f = FormatSVG
		case ".png":
			f = FormatPNG
		case ".json":
			f = FormatJSON
		default:
			f = FormatSVG
			if path != "" && filepath.Ext(path) == "" {
				path += ".svg"
			}
		}
	}
	switch f {
	case FormatSVG, FormatPNG, FormatJSON:
	default:
		return "", path, fmt.Errorf("unsupported format %q (want svg, png or json)", f)
	}
	if path == "" {
		return "", path, fmt.Errorf("output path is required")
	}
	return f, path, nil
}

// SaveScene writes opts.Scene to opts.Path and returns the path written.
func SaveScene(opts SceneOptions) (string, error) {
	defer metrics.Timer(metrics.ExportRender)()

	format, path, err := ResolveFormat(opts.Path, opts.Format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	switch format {
	case FormatSVG:
		err = WriteSVG(file, opts.Scene)
	case FormatPNG:
		err = WritePNG(file, opts.Scene)
	case FormatJSON:
		err = WriteJSON(file, opts.Scene)
	}
	if err != nil {
		return "", err
	}
	debug.Log("export: wrote %s (%d nodes, %d edges)", path, len(opts.Scene.Nodes), len(opts.Scene.Edges))
	return path, file.Close()
}

// WriteJSON writes the scene as indented JSON.
func WriteJSON(w io.Writer, sc scene.Scene) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// --- colors ------------------------------------------------------------------

var (
	colorBackdrop  = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG  = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorStroke    = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorText      = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle    = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorEdge      = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorEdgeComm  = color.RGBA{0xd9, 0x77, 0x06, 0xff}
	colorHighlight = color.RGBA{0xdc, 0x26, 0x26, 0xff}
)

var nodeColors = map[string]color.RGBA{
	"node-project":       {0x37, 0x41, 0x51, 0xff},
	"node-person":        {0x25, 0x63, 0xeb, 0xff},
	"node-phone-number":  {0x16, 0xa3, 0x4a, 0xff},
	"node-email-address": {0x0d, 0x94, 0x88, 0xff},
	"node-device":        {0x7c, 0x3a, 0xed, 0xff},
	"node-app":           {0xc0, 0x26, 0xd3, 0xff},
	"node-account":       {0xdb, 0x27, 0x77, 0xff},
	"node-location":      {0xea, 0x58, 0x0c, 0xff},
	"node-url":           {0x08, 0x91, 0xb2, 0xff},
	"node-page":          {0x9c, 0xa3, 0xaf, 0xff},
	"node-organization":  {0xca, 0x8a, 0x04, 0xff},
	"node-file":          {0x65, 0xa3, 0x0d, 0xff},
}

var colorUnknown = color.RGBA{0x6b, 0x72, 0x80, 0xff}

// NodeColor returns the fill color for a node style class.
func NodeColor(class string) color.RGBA {
	if c, ok := nodeColors[class]; ok {
		return c
	}
	return colorUnknown
}

// EdgeColor returns the stroke color for an edge.
func EdgeColor(e scene.Edge) color.RGBA {
	switch {
	case e.Highlighted:
		return colorHighlight
	case e.StyleClass == "edge-called" || e.StyleClass == "edge-messaged" || e.StyleClass == "edge-emailed":
		return colorEdgeComm
	default:
		return colorEdge
	}
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// withAlpha returns c at opacity a in [0, 1].
func withAlpha(c color.RGBA, a float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(255 * math.Max(0, math.Min(1, a))))}
}

func nodeOpacity(n scene.Node) float64 {
	if n.Dimmed {
		return 0.2
	}
	return 1
}

// --- geometry ----------------------------------------------------------------

// frame maps scene coordinates into the image, below the header strip.
type frame struct {
	sc scene.Scene
}

func (f frame) size() (int, int) {
	return int(math.Ceil(f.sc.Width)), int(math.Ceil(f.sc.Height)) + headerHeight
}

func (f frame) point(x, y float64) (float64, float64) {
	px, py := f.sc.Project(x, y)
	return px, py + headerHeight
}

func (f frame) radius(r float64) float64 {
	return r * scene.ClampZoom(f.sc.Zoom)
}

// legendClasses lists the node classes present in the scene, sorted.
func legendClasses(sc scene.Scene) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range sc.Nodes {
		if !seen[n.StyleClass] {
			seen[n.StyleClass] = true
			out = append(out, n.StyleClass)
		}
	}
	sort.Strings(out)
	return out
}

func summaryLines(sc scene.Scene) []string {
	title := sc.Summary.Title
	if strings.TrimSpace(title) == "" {
		title = "Relationship Graph"
	}
	lines := []string{
		title,
		fmt.Sprintf("nodes: %d  edges: %d  components: %d  dangling: %d",
			sc.Summary.NodeCount, sc.Summary.EdgeCount, sc.Summary.Components, sc.Summary.DanglingEdges),
	}
	if sc.Summary.Selected != "" {
		lines = append(lines, fmt.Sprintf("selected: %s", sc.Summary.Selected))
	} else {
		lines = append(lines, fmt.Sprintf("zoom: %.2f", sc.Zoom))
	}
	return lines
}

// --- SVG ---------------------------------------------------------------------

// WriteSVG renders the scene as SVG. Elements carry their style class so the
// output can be restyled.
func WriteSVG(w io.Writer, sc scene.Scene) error {
	f := frame{sc: sc}
	width, height := f.size()

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 12, width-32, headerHeight-20, 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	for i, line := range summaryLines(sc) {
		style := fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle))
		if i == 0 {
			style = fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText))
		}
		canvas.Text(32, 36+i*20, line, style)
	}
	drawLegendSVG(canvas, sc, width)

	if len(sc.Nodes) == 0 {
		canvas.Text(width/2, headerHeight+int(sc.Height)/2, "no graph data",
			fmt.Sprintf("fill:%s;font-size:14px;font-family:monospace;text-anchor:middle", css(colorSubtle)))
	}

	canvas.Gid("edges")
	for _, e := range sc.Edges {
		x1, y1 := f.point(e.X1, e.Y1)
		x2, y2 := f.point(e.X2, e.Y2)
		strokeWidth := 1.2
		if e.Highlighted {
			strokeWidth = 2.4
		}
		canvas.Line(int(x1), int(y1), int(x2), int(y2),
			fmt.Sprintf(`class="%s"`, e.StyleClass),
			fmt.Sprintf("stroke:%s;stroke-width:%.1f;stroke-opacity:%.2f", css(EdgeColor(e)), strokeWidth, e.Opacity))
		if e.LabelText != "" {
			canvas.Text(int((x1+x2)/2), int((y1+y2)/2)-4, e.LabelText,
				fmt.Sprintf("fill:%s;font-size:10px;font-family:monospace;text-anchor:middle", css(colorHighlight)))
		}
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, n := range sc.Nodes {
		x, y := f.point(n.X, n.Y)
		r := f.radius(n.Radius)
		stroke := css(colorStroke)
		strokeWidth := 1.0
		if n.Selected {
			stroke = css(colorHighlight)
			strokeWidth = 2.5
		}
		canvas.Circle(int(x), int(y), int(math.Round(r)),
			fmt.Sprintf(`class="%s"`, n.StyleClass),
			fmt.Sprintf(`id="%s"`, svgID(n.ID)),
			fmt.Sprintf("fill:%s;fill-opacity:%.2f;stroke:%s;stroke-width:%.1f",
				css(NodeColor(n.StyleClass)), nodeOpacity(n), stroke, strokeWidth))
		canvas.Text(int(x), int(y+r)+12, n.LabelText,
			fmt.Sprintf("fill:%s;fill-opacity:%.2f;font-size:11px;font-family:monospace;text-anchor:middle",
				css(colorText), nodeOpacity(n)))
	}
	canvas.Gend()

	canvas.End()
	return nil
}

func drawLegendSVG(canvas *svg.SVG, sc scene.Scene, width int) {
	classes := legendClasses(sc)
	if len(classes) == 0 {
		return
	}
	x := width - 200
	for i, class := range classes {
		col, row := i/4, i%4
		cx := x - col*150
		cy := 26 + row*16
		canvas.Circle(cx, cy, 5, fmt.Sprintf("fill:%s", css(NodeColor(class))))
		canvas.Text(cx+10, cy+4, strings.TrimPrefix(class, "node-"),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
	}
}

// svgID makes a store id usable as an XML id attribute.
func svgID(id string) string {
	var b strings.Builder
	b.WriteString("n-")
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// --- PNG ---------------------------------------------------------------------

// WritePNG rasterizes the scene.
func WritePNG(w io.Writer, sc scene.Scene) error {
	f := frame{sc: sc}
	width, height := f.size()

	dc := gg.NewContext(width, height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 12, float64(width)-32, headerHeight-20, 10)
	dc.Fill()
	for i, line := range summaryLines(sc) {
		if i == 0 {
			dc.SetColor(colorText)
		} else {
			dc.SetColor(colorSubtle)
		}
		dc.DrawStringAnchored(line, 32, float64(32+i*20), 0, 0.5)
	}
	drawLegendPNG(dc, sc, width)

	if len(sc.Nodes) == 0 {
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored("no graph data", float64(width)/2, headerHeight+sc.Height/2, 0.5, 0.5)
	}

	for _, e := range sc.Edges {
		x1, y1 := f.point(e.X1, e.Y1)
		x2, y2 := f.point(e.X2, e.Y2)
		dc.SetColor(withAlpha(EdgeColor(e), e.Opacity))
		if e.Highlighted {
			dc.SetLineWidth(2.4)
		} else {
			dc.SetLineWidth(1.2)
		}
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		if e.LabelText != "" {
			dc.SetColor(colorHighlight)
			dc.DrawStringAnchored(e.LabelText, (x1+x2)/2, (y1+y2)/2-6, 0.5, 0.5)
		}
	}

	for _, n := range sc.Nodes {
		drawNodePNG(dc, f, n)
	}

	return dc.EncodePNG(w)
}

func drawNodePNG(dc *gg.Context, f frame, n scene.Node) {
	x, y := f.point(n.X, n.Y)
	r := f.radius(n.Radius)
	alpha := nodeOpacity(n)

	dc.SetColor(withAlpha(NodeColor(n.StyleClass), alpha))
	dc.DrawCircle(x, y, r)
	dc.Fill()

	stroke := colorStroke
	dc.SetLineWidth(1)
	if n.Selected {
		stroke = colorHighlight
		dc.SetLineWidth(2.5)
	}
	dc.SetColor(withAlpha(stroke, alpha))
	dc.DrawCircle(x, y, r)
	dc.Stroke()

	dc.SetColor(withAlpha(colorText, alpha))
	dc.DrawStringAnchored(n.LabelText, x, y+r+10, 0.5, 0.5)
}

func drawLegendPNG(dc *gg.Context, sc scene.Scene, width int) {
	x := float64(width - 200)
	for i, class := range legendClasses(sc) {
		col, row := i/4, i%4
		cx := x - float64(col*150)
		cy := float64(26 + row*16)
		dc.SetColor(NodeColor(class))
		dc.DrawCircle(cx, cy, 5)
		dc.Fill()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(strings.TrimPrefix(class, "node-"), cx+10, cy, 0, 0.5)
	}
}
