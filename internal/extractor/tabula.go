package extractor

import (
	"fmt"
	"os"

	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/reader"
)

// tabulaSource extracts text with github.com/tsawler/tabula, which orders
// fragments by detected layout (columns, reading order) rather than by
// content-stream order.
type tabulaSource struct{}

func (tabulaSource) pages(f *os.File, _ int64) ([]string, error) {
	r, err := reader.NewReader(f)
	if err != nil {
		return nil, err
	}

	n, err := r.PageCount()
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		// FromReader does not take ownership, so the shared reader stays
		// open across pages; the caller closes f.
		text, _, err := tabula.FromReader(r).Pages(i).Text()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}
