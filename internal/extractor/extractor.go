// Package extractor turns PDF documents into ordered lines of text.
//
// Every backend reads the document page by page, concatenates the text of
// each page in document order and splits it on '\n'. Empty lines and
// duplicates are preserved, so two extractions of the same file always
// compare equal.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/jaywantadh/pdfdiff/pkg/logging"
)

var (
	// ErrIO reports a document that is missing, unreadable or not a file.
	ErrIO = errors.New("i/o error")
	// ErrExtraction reports a document that cannot be parsed as a PDF.
	ErrExtraction = errors.New("extraction error")
)

// Backend names accepted by New.
const (
	BackendRSC        = "rsc"
	BackendLedongthuc = "ledongthuc"
	BackendTabula     = "tabula"
)

// Document is the extracted text of one PDF.
type Document struct {
	Lines []string
	Pages int
}

// Extractor extracts the text lines of the PDF at path.
type Extractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

// pageSource returns the visible text of every page of an open document,
// in page order.
type pageSource interface {
	pages(f *os.File, size int64) ([]string, error)
}

// Options configures a PDFExtractor.
type Options struct {
	Backend string
	// Validate runs a structural pdfcpu validation before extraction.
	Validate bool
	// Normalize is "", "none", "nfc" or "nfkc".
	Normalize string
	// TrimSpace strips trailing whitespace from every line.
	TrimSpace bool
	// Password opens encrypted documents (ledongthuc backend only).
	Password string
}

// PDFExtractor is the Extractor used by the comparison run. It is
// stateless and safe for concurrent use.
type PDFExtractor struct {
	src    pageSource
	opts   Options
	logger *logrus.Logger
}

// New returns an extractor for the configured backend.
func New(opts Options, logger *logrus.Logger) (*PDFExtractor, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Backend == "" {
		opts.Backend = BackendRSC
	}

	var src pageSource
	switch opts.Backend {
	case BackendRSC:
		src = rscSource{}
	case BackendLedongthuc:
		src = ledongthucSource{password: opts.Password}
	case BackendTabula:
		src = tabulaSource{}
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", opts.Backend)
	}

	switch opts.Normalize {
	case "", "none", "nfc", "nfkc":
	default:
		return nil, fmt.Errorf("unknown normalization form %q", opts.Normalize)
	}

	return &PDFExtractor{src: src, opts: opts, logger: logger}, nil
}

// Backend returns the backend name.
func (e *PDFExtractor) Backend() string {
	return e.opts.Backend
}

// Variant identifies the post-processing options, so cached output of
// differently configured extractors never collides.
func (e *PDFExtractor) Variant() string {
	v := e.opts.Normalize
	if v == "" {
		v = "none"
	}
	if e.opts.TrimSpace {
		v += "+trim"
	}
	return v
}

// Extract reads the document at path. The file handle is released before
// Extract returns, whatever the outcome.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	if e.opts.Validate {
		if err := Validate(path); err != nil {
			return Document{}, err
		}
	}
	return e.extract(path)
}

// extract reads the document without the optional structural validation.
func (e *PDFExtractor) extract(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%w: %s is a directory", ErrIO, path)
	}

	texts, err := e.readPages(f, info.Size())
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", ErrExtraction, path, err)
	}

	lines := e.postProcess(SplitPages(texts))
	e.logger.WithFields(logrus.Fields{
		"path":    path,
		"backend": e.opts.Backend,
		"pages":   len(texts),
		"lines":   len(lines),
	}).Debug("📄 Extracted text")

	return Document{Lines: lines, Pages: len(texts)}, nil
}

// readPages runs the backend, converting parser panics into errors. The
// PDF libraries signal malformed input by panicking.
func (e *PDFExtractor) readPages(f *os.File, size int64) (texts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			texts = nil
			err = fmt.Errorf("malformed document: %v", r)
		}
	}()
	return e.src.pages(f, size)
}

func (e *PDFExtractor) postProcess(lines []string) []string {
	var form norm.Form
	normalize := true
	switch e.opts.Normalize {
	case "nfc":
		form = norm.NFC
	case "nfkc":
		form = norm.NFKC
	default:
		normalize = false
	}
	if !normalize && !e.opts.TrimSpace {
		return lines
	}

	for i, l := range lines {
		if normalize {
			l = form.String(l)
		}
		if e.opts.TrimSpace {
			l = strings.TrimRight(l, " \t\r")
		}
		lines[i] = l
	}
	return lines
}

// SplitPages splits each page's text on '\n' and concatenates the results
// in page order. A page without text contributes one empty line.
func SplitPages(texts []string) []string {
	lines := make([]string, 0, len(texts))
	for _, t := range texts {
		lines = append(lines, strings.Split(t, "\n")...)
	}
	return lines
}
