package extractor

import (
	"math"
	"strings"
)

// glyph is a positioned run of text as reported by the content-stream
// interpreters of rsc.io/pdf and ledongthuc/pdf.
type glyph struct {
	S        string
	X, Y     float64
	W        float64
	FontSize float64
}

// joinGlyphs rebuilds page text from glyphs in content order. A change of
// baseline starts a new line; a horizontal gap wider than a fraction of
// the font size inserts a space when the font reports glyph widths.
func joinGlyphs(glyphs []glyph) string {
	var b strings.Builder
	for i, g := range glyphs {
		if i > 0 {
			prev := glyphs[i-1]
			tol := math.Max(prev.FontSize, g.FontSize) * 0.5
			if tol < 1 {
				tol = 1
			}
			switch {
			case math.Abs(g.Y-prev.Y) > tol:
				b.WriteByte('\n')
			case prev.W > 0 && g.X-(prev.X+prev.W) > 0.25*g.FontSize &&
				!strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " "):
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	return b.String()
}
