package storage

// Location is one side of a comparison: a place that holds named PDF
// documents.
type Location interface {
	// Name returns a human-readable identifier such as the directory path.
	Name() string
	// List returns the base names of the PDF documents in the location, sorted.
	List() ([]string, error)
	// Path returns the full path of the named document.
	Path(name string) string
}

// PDFExtension is the suffix a file name must carry to be listed.
const PDFExtension = ".pdf"
