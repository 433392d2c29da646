// Package differ compares two sequences of text lines and describes the
// added and removed lines.
package differ

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Op classifies one entry of a merged diff.
type Op byte

const (
	Equal   Op = ' '
	Removed Op = '-'
	Added   Op = '+'
)

// Edit is one entry of the merged diff of two line sequences.
type Edit struct {
	Op   Op
	Text string
	// Pos is the 0-based position of the entry in the merged diff.
	Pos int
	// OldLine and NewLine are 1-based line numbers in the old and new
	// sequences, 0 where the line does not exist on that side.
	OldLine int
	NewLine int
}

type options struct {
	sourceLines bool
}

// Option customises Diff.
type Option func(*options)

// WithSourceLineNumbers labels each annotation with the line number in the
// sequence the line belongs to (old for removals, new for additions)
// instead of the position in the merged diff.
func WithSourceLineNumbers() Option {
	return func(o *options) { o.sourceLines = true }
}

// Identical reports whether a and b have the same length and pairwise
// equal elements.
func Identical(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Edits returns the merged diff of a and b computed with difflib's
// SequenceMatcher. A replaced block is listed as all its removed lines
// followed by all its added lines.
func Edits(a, b []string) []Edit {
	m := difflib.NewMatcher(a, b)
	var edits []Edit
	emit := func(op Op, text string, oldLine, newLine int) {
		edits = append(edits, Edit{Op: op, Text: text, Pos: len(edits), OldLine: oldLine, NewLine: newLine})
	}

	for _, c := range m.GetOpCodes() {
		switch c.Tag {
		case 'e':
			for k := 0; k < c.I2-c.I1; k++ {
				emit(Equal, a[c.I1+k], c.I1+k+1, c.J1+k+1)
			}
		case 'd':
			for i := c.I1; i < c.I2; i++ {
				emit(Removed, a[i], i+1, 0)
			}
		case 'i':
			for j := c.J1; j < c.J2; j++ {
				emit(Added, b[j], 0, j+1)
			}
		case 'r':
			for i := c.I1; i < c.I2; i++ {
				emit(Removed, a[i], i+1, 0)
			}
			for j := c.J1; j < c.J2; j++ {
				emit(Added, b[j], 0, j+1)
			}
		}
	}
	return edits
}

// Diff reports whether a and b are identical and, when they are not, one
// annotation per added or removed line in merged-diff order, formatted as
// "Line {i}: {marker} {text}". Unchanged lines produce no annotation.
//
// By default i is the position in the sequence returned by Edits. That is
// not Python ndiff's numbering: ndiff emits "?" hint lines after similar
// replaced lines, so replacing "Total: 100" with "Total: 120" is reported
// by ndiff at line 2 and by Diff as "Line 1: + Total: 120". The edit script
// is not symmetric either; swapping a and b can change which positions are
// reported, exactly as it does for ndiff.
func Diff(a, b []string, opts ...Option) (bool, []string) {
	if Identical(a, b) {
		return true, nil
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var annotations []string
	for _, e := range Edits(a, b) {
		if e.Op == Equal {
			continue
		}
		annotations = append(annotations, Annotate(e, o.sourceLines))
	}
	return false, annotations
}

// Annotate formats a single added or removed entry.
func Annotate(e Edit, sourceLines bool) string {
	idx := e.Pos
	if sourceLines {
		idx = e.OldLine
		if e.Op == Added {
			idx = e.NewLine
		}
	}
	return fmt.Sprintf("Line %d: %c %s", idx, byte(e.Op), e.Text)
}
