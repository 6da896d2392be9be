package server

import (
	"fmt"
	"html"
	"io"

	"github.com/seqtools/degbrowser/internal/analysis"
)

// =============================================================================
// Venn Diagram Rendering
// =============================================================================

// Venn diagrams are rendered server-side as SVG so the browser needs no
// plotting library for them and the image can be saved as-is.

var vennFills = []string{
	"rgba(31,119,180,0.45)",
	"rgba(255,127,14,0.45)",
	"rgba(44,160,44,0.45)",
}

type vennCircle struct {
	cx, cy, r float64
}

// region centroids indexed like the Regions slice of Venn2 / Venn3.
var (
	venn2Circles = []vennCircle{{150, 160, 105}, {260, 160, 105}}
	venn2Centers = [][2]float64{{105, 160}, {305, 160}, {205, 160}}

	venn3Circles = []vennCircle{{165, 140, 100}, {245, 140, 100}, {205, 210, 100}}
	venn3Centers = [][2]float64{
		{120, 110}, {290, 110}, {205, 275},
		{205, 105}, {140, 195}, {270, 195},
		{205, 160},
	}
)

// WriteVennSVG renders the region decomposition as a standalone SVG image.
func WriteVennSVG(w io.Writer, res *analysis.VennResult) error {
	circles, centers := venn2Circles, venn2Centers
	if len(res.Names) == 3 {
		circles, centers = venn3Circles, venn3Centers
	}

	var err error
	pr := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	pr(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 410 340" font-family="sans-serif">` + "\n")
	for i, c := range circles {
		pr(`  <circle cx="%g" cy="%g" r="%g" fill="%s" stroke="#444" stroke-width="1"/>`+"\n",
			c.cx, c.cy, c.r, vennFills[i])
	}
	for i, region := range res.Regions {
		if i >= len(centers) {
			break
		}
		pr(`  <text x="%g" y="%g" text-anchor="middle" font-size="16">%d</text>`+"\n",
			centers[i][0], centers[i][1], region.Count)
	}
	for i, name := range res.Names {
		c := circles[i]
		y := c.cy - c.r - 8
		anchor := "middle"
		if len(res.Names) == 3 && i == 2 {
			y = c.cy + c.r + 16
		}
		pr(`  <text x="%g" y="%g" text-anchor="%s" font-size="13">%s (%d)</text>`+"\n",
			c.cx, y, anchor, html.EscapeString(truncateName(name, 28)), res.SetSizes[i])
	}
	pr("</svg>\n")
	return err
}

func truncateName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
