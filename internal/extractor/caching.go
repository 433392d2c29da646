package extractor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jaywantadh/pdfdiff/internal/cache"
	"github.com/jaywantadh/pdfdiff/pkg/logging"
)

// CachingExtractor serves extractions from a persistent cache keyed by the
// document's content hash, falling back to the wrapped extractor.
type CachingExtractor struct {
	inner  *PDFExtractor
	store  *cache.Store
	logger *logrus.Logger
}

// NewCaching wraps inner with store.
func NewCaching(inner *PDFExtractor, store *cache.Store, logger *logrus.Logger) *CachingExtractor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &CachingExtractor{inner: inner, store: store, logger: logger}
}

func (c *CachingExtractor) Extract(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	// Entries may have been cached with validation disabled.
	if c.inner.opts.Validate {
		if err := Validate(path); err != nil {
			return Document{}, err
		}
	}

	hash, err := cache.HashFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	key := cache.Key(c.inner.Backend(), c.inner.Variant(), hash)

	entry, ok, err := c.store.Get(key)
	if err != nil {
		c.logger.WithField("path", path).Warnf("⚠️ Cache lookup failed: %v", err)
	}
	if ok {
		c.logger.WithField("path", path).Debug("♻️ Cache hit")
		return Document{Lines: entry.Lines, Pages: entry.Pages}, nil
	}

	doc, err := c.inner.extract(path)
	if err != nil {
		return Document{}, err
	}

	if err := c.store.Put(key, cache.Entry{
		Backend: c.inner.Backend(),
		Hash:    hash,
		Lines:   doc.Lines,
		Pages:   doc.Pages,
	}); err != nil {
		c.logger.WithField("path", path).Warnf("⚠️ Failed to cache extraction: %v", err)
	}
	return doc, nil
}
