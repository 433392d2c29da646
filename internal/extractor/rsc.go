package extractor

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/font"
	"rsc.io/pdf"
)

// rscSource extracts text with rsc.io/pdf. The page content is run through
// its own text-state interpreter instead of Page.Content, which drops space
// glyphs and stops advancing the pen for fonts without a /Widths array
// (the standard 14 fonts).
type rscSource struct{}

func (rscSource) pages(f *os.File, size int64) ([]string, error) {
	r, err := pdf.NewReader(f, size)
	if err != nil {
		return nil, err
	}

	n := r.NumPage()
	texts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, joinGlyphs(pageGlyphs(page)))
	}
	return texts, nil
}

type matrix [3][3]float64

var identity = matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func (x matrix) mul(y matrix) matrix {
	var z matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				z[i][j] += x[i][k] * y[k][j]
			}
		}
	}
	return z
}

func translate(tx, ty float64) matrix {
	return matrix{{1, 0, 0}, {0, 1, 0}, {tx, ty, 1}}
}

// textState is the part of the graphics state that positions glyphs.
type textState struct {
	font     pdf.Font
	baseFont string
	enc      pdf.TextEncoding
	twoByte  bool

	size    float64 // Tfs
	charSp  float64 // Tc
	wordSp  float64 // Tw
	scale   float64 // Th
	leading float64 // TL
	rise    float64 // Ts

	tm, tlm, ctm matrix
}

type nopEncoding struct{}

func (nopEncoding) Decode(raw string) string { return raw }

// pageGlyphs interprets the text operators of every content stream of page
// and returns the shown glyphs, spaces included, in content order.
func pageGlyphs(page pdf.Page) []glyph {
	var (
		glyphs []glyph
		stack  []textState
	)
	g := textState{enc: nopEncoding{}, scale: 1, tm: identity, tlm: identity, ctm: identity}

	emit := func(s string, w0 float64) {
		trm := matrix{{g.size * g.scale, 0, 0}, {0, g.size, 0}, {0, g.rise, 1}}.mul(g.tm).mul(g.ctm)
		glyphs = append(glyphs, glyph{S: s, X: trm[2][0], Y: trm[2][1], W: w0 / 1000 * trm[0][0], FontSize: trm[0][0]})
	}
	advance := func(w0 float64, spaces int) {
		tx := (w0/1000*g.size + g.charSp + float64(spaces)*g.wordSp) * g.scale
		g.tm = translate(tx, 0).mul(g.tm)
	}
	show := func(raw string) {
		if g.twoByte {
			// Composite fonts: one glyph for the whole run, half an em
			// per character.
			text := g.enc.Decode(raw)
			w0 := 500 * float64(utf8.RuneCountInString(text))
			emit(text, w0)
			advance(w0, 0)
			return
		}
		for i := 0; i < len(raw); i++ {
			code := raw[i]
			w0 := g.font.Width(int(code))
			if w0 == 0 {
				w0 = fallbackWidth(g.baseFont, code)
			}
			emit(g.enc.Decode(raw[i:i+1]), w0)
			spaces := 0
			if code == ' ' {
				spaces = 1
			}
			advance(w0, spaces)
		}
	}
	nextLine := func() {
		g.tlm = translate(0, -g.leading).mul(g.tlm)
		g.tm = g.tlm
	}

	interpret := func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		num := func(i int) float64 {
			if i < len(args) {
				return args[i].Float64()
			}
			return 0
		}

		switch op {
		case "q":
			stack = append(stack, g)
		case "Q":
			if len(stack) > 0 {
				g = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
		case "cm":
			if n == 6 {
				g.ctm = matrix{{num(0), num(1), 0}, {num(2), num(3), 0}, {num(4), num(5), 1}}.mul(g.ctm)
			}
		case "BT":
			g.tm, g.tlm = identity, identity
		case "Tc":
			g.charSp = num(0)
		case "Tw":
			g.wordSp = num(0)
		case "Tz":
			g.scale = num(0) / 100
		case "TL":
			g.leading = num(0)
		case "Ts":
			g.rise = num(0)
		case "Tf":
			if n == 2 {
				g.font = page.Font(args[0].Name())
				g.baseFont = g.font.BaseFont()
				if i := strings.Index(g.baseFont, "+"); i >= 0 {
					g.baseFont = g.baseFont[i+1:]
				}
				g.enc = g.font.Encoder()
				if g.enc == nil {
					g.enc = nopEncoding{}
				}
				g.twoByte = g.font.V.Key("Subtype").Name() == "Type0"
				g.size = num(1)
			}
		case "Td", "TD":
			if op == "TD" {
				g.leading = -num(1)
			}
			g.tlm = translate(num(0), num(1)).mul(g.tlm)
			g.tm = g.tlm
		case "Tm":
			if n == 6 {
				g.tm = matrix{{num(0), num(1), 0}, {num(2), num(3), 0}, {num(4), num(5), 1}}
				g.tlm = g.tm
			}
		case "T*":
			nextLine()
		case "Tj":
			if n == 1 {
				show(args[0].RawString())
			}
		case "'":
			if n == 1 {
				nextLine()
				show(args[0].RawString())
			}
		case "\"":
			if n == 3 {
				g.wordSp, g.charSp = num(0), num(1)
				nextLine()
				show(args[2].RawString())
			}
		case "TJ":
			if n != 1 {
				return
			}
			v := args[0]
			for i := 0; i < v.Len(); i++ {
				x := v.Index(i)
				if x.Kind() == pdf.String {
					show(x.RawString())
				} else {
					g.tm = translate(-x.Float64()/1000*g.size*g.scale, 0).mul(g.tm)
				}
			}
		}
	}

	contents := page.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			pdf.Interpret(contents.Index(i), interpret)
		}
	} else {
		pdf.Interpret(contents, interpret)
	}
	return glyphs
}

// fallbackWidth returns the advance of code in glyph space units from the
// standard 14 font metrics, using Helvetica for fonts outside that set.
func fallbackWidth(baseFont string, code byte) float64 {
	if !font.IsCoreFont(baseFont) {
		baseFont = "Helvetica"
	}
	return float64(font.CharWidth(baseFont, rune(code)))
}
