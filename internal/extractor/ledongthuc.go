package extractor

import (
	"os"

	"github.com/ledongthuc/pdf"
)

// ledongthucSource extracts text with github.com/ledongthuc/pdf, which also
// opens password-protected documents.
type ledongthucSource struct {
	password string
}

func (s ledongthucSource) pages(f *os.File, size int64) ([]string, error) {
	var (
		r   *pdf.Reader
		err error
	)
	if s.password != "" {
		tried := false
		r, err = pdf.NewReaderEncrypted(f, size, func() string {
			if tried {
				return ""
			}
			tried = true
			return s.password
		})
	} else {
		r, err = pdf.NewReader(f, size)
	}
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
		content := page.Content()
		glyphs := make([]glyph, len(content.Text))
		for j, t := range content.Text {
			glyphs[j] = glyph{S: t.S, X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize}
		}
		texts = append(texts, joinGlyphs(glyphs))
	}
	return texts, nil
}
