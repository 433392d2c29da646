// Package report renders the results of a comparison run as a PDF table
// and as JSON.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/jaywantadh/pdfdiff/internal/compare"
)

// ErrRender reports a report that could not be produced or written.
var ErrRender = errors.New("render error")

// Layout in points on a US Letter page.
const (
	marginSide   = 30.0
	marginTop    = 36.0
	marginBottom = 48.0

	padV = 12.0
	padH = 6.0

	headerFontSize = 12.0
	headerLeading  = 14.0
	bodyFontSize   = 9.0
	bodyLeading    = 12.0
)

var colWidths = [3]float64{120, 60, 330}

var columns = [3]string{"File Name", "Status", "Differences"}

type options struct {
	title   string
	creator string
}

// Option customises Build.
type Option func(*options)

// WithTitle sets the document title metadata.
func WithTitle(title string) Option {
	return func(o *options) { o.title = title }
}

// WithCreator sets the document creator metadata.
func WithCreator(creator string) Option {
	return func(o *options) { o.creator = creator }
}

// StatusLabel is the text shown in the Status column.
func StatusLabel(r compare.Result) string {
	switch r.Status {
	case compare.StatusError:
		return "Error"
	case compare.StatusMissingOld:
		return "Missing (old)"
	case compare.StatusMissingNew:
		return "Missing (new)"
	}
	if r.Identical {
		return "Identical"
	}
	return "Different"
}

// DifferencesText is the text shown in the Differences column: one
// annotation per line, the error message for failed rows, or "N/A".
func DifferencesText(r compare.Result) string {
	if r.Status == compare.StatusError && r.Err != "" {
		return r.Err
	}
	if len(r.Differences) == 0 {
		return "N/A"
	}
	return strings.Join(r.Differences, "\n")
}

// Build renders run to outputPath, overwriting any existing file.
func Build(run *compare.Run, outputPath string, opts ...Option) error {
	pdf, err := render(run, opts)
	if err != nil {
		return err
	}
	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", ErrRender, outputPath, err)
	}
	return nil
}

// Write renders run to w.
func Write(run *compare.Run, w io.Writer, opts ...Option) error {
	pdf, err := render(run, opts)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	return nil
}

func render(run *compare.Run, opts []Option) (*fpdf.Fpdf, error) {
	if run == nil {
		return nil, fmt.Errorf("%w: no run to render", ErrRender)
	}
	o := options{title: "PDF Comparison Report", creator: "pdfdiff"}
	for _, opt := range opts {
		opt(&o)
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetTitle(o.title, true)
	pdf.SetCreator(o.creator, true)
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.AliasNbPages("")

	runID := run.ID
	pdf.SetFooterFunc(func() {
		pdf.SetY(-marginBottom + 14)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(96, 96, 96)
		pageW, _ := pdf.GetPageSize()
		half := (pageW - 2*marginSide) / 2
		pdf.CellFormat(half, 10, "Run "+runID, "", 0, "L", false, 0, "")
		pdf.CellFormat(half, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	t := &table{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 18, fmt.Sprintf("PDF Comparison Report - Total Files: %d", run.Total), "", 1, "L", false, 0, "")
	pdf.Ln(30)

	t.header()
	for _, r := range run.Results {
		t.row([3]string{r.Name, StatusLabel(r), DifferencesText(r)})
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return pdf, nil
}

// table draws a bordered three-column grid. Rows taller than the space
// left on a page continue on the next page below a repeated header.
type table struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (t *table) bottom() float64 {
	_, h := t.pdf.GetPageSize()
	return h - marginBottom
}

func (t *table) header() {
	pdf := t.pdf
	pdf.SetFont("Helvetica", "B", headerFontSize)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(1)

	height := 2*padV + headerLeading
	x, y := marginSide, pdf.GetY()
	for i, name := range columns {
		pdf.Rect(x, y, colWidths[i], height, "FD")
		pdf.SetXY(x+padH, y+padV)
		pdf.CellFormat(colWidths[i]-2*padH, headerLeading, name, "", 0, "L", false, 0, "")
		x += colWidths[i]
	}
	pdf.SetXY(marginSide, y+height)
}

// wrap splits text into lines that fit a column of width w.
func (t *table) wrap(text string, w float64) []string {
	var out []string
	for _, para := range strings.Split(t.tr(text), "\n") {
		if para == "" {
			out = append(out, "")
			continue
		}
		for _, l := range t.pdf.SplitLines([]byte(para), w) {
			out = append(out, string(l))
		}
	}
	return out
}

func (t *table) row(cells [3]string) {
	pdf := t.pdf
	pdf.SetFont("Helvetica", "", bodyFontSize)

	var lines [3][]string
	total := 0
	for i, c := range cells {
		lines[i] = t.wrap(c, colWidths[i]-2*padH)
		if len(lines[i]) > total {
			total = len(lines[i])
		}
	}

	for off := 0; off < total; {
		avail := t.bottom() - pdf.GetY() - 2*padV
		fit := int(avail / bodyLeading)
		if fit < 1 {
			t.newPage()
			continue
		}
		n := total - off
		if n > fit {
			n = fit
		}
		t.segment(lines, off, n)
		off += n
		if off < total {
			t.newPage()
		}
	}
}

// segment draws lines [off, off+n) of every column as one bordered band.
func (t *table) segment(lines [3][]string, off, n int) {
	pdf := t.pdf
	pdf.SetFont("Helvetica", "", bodyFontSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(1)

	height := 2*padV + float64(n)*bodyLeading
	x, y := marginSide, pdf.GetY()
	for i := range lines {
		pdf.Rect(x, y, colWidths[i], height, "D")
		for k := 0; k < n && off+k < len(lines[i]); k++ {
			pdf.SetXY(x+padH, y+padV+float64(k)*bodyLeading)
			pdf.CellFormat(colWidths[i]-2*padH, bodyLeading, lines[i][off+k], "", 0, "LT", false, 0, "")
		}
		x += colWidths[i]
	}
	pdf.SetXY(marginSide, y+height)
}

func (t *table) newPage() {
	t.pdf.AddPage()
	t.header()
	t.pdf.SetFont("Helvetica", "", bodyFontSize)
}

// WriteJSON dumps run as indented JSON to path.
func WriteJSON(run *compare.Run, path string) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode run: %v", ErrRender, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", ErrRender, path, err)
	}
	return nil
}
