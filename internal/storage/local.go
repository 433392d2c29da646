package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnreadable is returned when a location directory is missing, is not a
// directory or cannot be listed.
var ErrUnreadable = errors.New("location is not a readable directory")

// LocalDir implements Location for a directory on the local filesystem.
// Only regular files directly inside the directory are considered.
type LocalDir struct {
	basePath string
}

// NewLocalDir creates a LocalDir rooted at basePath. The directory is not
// touched until List is called.
func NewLocalDir(basePath string) *LocalDir {
	return &LocalDir{basePath: basePath}
}

func (d *LocalDir) Name() string {
	return d.basePath
}

// List returns the sorted names of the files ending in ".pdf".
func (d *LocalDir) List() ([]string, error) {
	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, d.basePath, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), PDFExtension) {
			continue
		}
		if !e.Type().IsRegular() {
			// Follow symlinks; skip directories named *.pdf.
			info, err := os.Stat(filepath.Join(d.basePath, e.Name()))
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the file path for a given document name.
func (d *LocalDir) Path(name string) string {
	return filepath.Join(d.basePath, name)
}
