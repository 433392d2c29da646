package extractor

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfcpuOnce sync.Once

func pdfcpuConfig() *model.Configuration {
	pdfcpuOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Validate checks the structure of the PDF at path with pdfcpu.
func Validate(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := api.ValidateFile(path, pdfcpuConfig()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExtraction, path, err)
	}
	return nil
}

// PageCount returns the number of pages of the PDF at path as reported by
// pdfcpu, independent of the text backend.
func PageCount(path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return 0, fmt.Errorf("%w: %v", ErrIO, err)
		}
		return 0, err
	}
	pdfcpuConfig()
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrExtraction, path, err)
	}
	return n, nil
}
