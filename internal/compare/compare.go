// Package compare pairs the PDF documents of two locations by name,
// extracts and diffs each pair and aggregates the results of a run.
package compare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jaywantadh/pdfdiff/internal/differ"
	"github.com/jaywantadh/pdfdiff/internal/extractor"
	"github.com/jaywantadh/pdfdiff/internal/storage"
	"github.com/jaywantadh/pdfdiff/pkg/logging"
)

// Status classifies a Result.
type Status string

const (
	StatusIdentical  Status = "identical"
	StatusDifferent  Status = "different"
	StatusError      Status = "error"
	StatusMissingOld Status = "missing_old"
	StatusMissingNew Status = "missing_new"
)

// Result is the outcome for one document name.
type Result struct {
	Name        string   `json:"name"`
	Identical   bool     `json:"identical"`
	Differences []string `json:"differences"`
	Status      Status   `json:"status"`
	Err         string   `json:"error,omitempty"`
	PagesOld    int      `json:"pages_old"`
	PagesNew    int      `json:"pages_new"`
	LinesOld    int      `json:"lines_old"`
	LinesNew    int      `json:"lines_new"`
}

// Run aggregates the results of one comparison run, in name order.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Results   []Result  `json:"results"`
	Total     int       `json:"total"`
}

// Config wires a Comparer.
type Config struct {
	Old       storage.Location
	New       storage.Location
	Extractor extractor.Extractor

	// KeepGoing records extraction failures as error results instead of
	// aborting the run.
	KeepGoing bool
	// IncludeMissing adds a row for every document found in only one
	// location.
	IncludeMissing bool
	// Workers bounds the number of documents compared concurrently.
	Workers int
	// SourceLineNumbers labels annotations with source line numbers
	// instead of merged-diff positions.
	SourceLineNumbers bool

	Console io.Writer
	Logger  *logrus.Logger
}

// Comparer runs comparisons between two locations.
type Comparer struct {
	cfg Config
}

// New validates cfg and returns a Comparer.
func New(cfg Config) (*Comparer, error) {
	if cfg.Old == nil || cfg.New == nil {
		return nil, errors.New("both locations are required")
	}
	if cfg.Extractor == nil {
		return nil, errors.New("an extractor is required")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Comparer{cfg: cfg}, nil
}

// pair is one name scheduled for a run.
type pair struct {
	name   string
	status Status // set for names present in one location only
}

// Run compares every document present in both locations and returns the
// results sorted by name. Unless KeepGoing is set, the first extraction
// failure aborts the run and is returned.
func (c *Comparer) Run(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString(), StartedAt: time.Now()}
	log := c.cfg.Logger.WithField("run_id", run.ID)

	pairs, err := c.pairs()
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"old":   c.cfg.Old.Name(),
		"new":   c.cfg.New.Name(),
		"files": len(pairs),
	}).Info("🔍 Starting comparison run")

	results := make([]Result, len(pairs))
	out := newOrderedPrinter(c.cfg.Console, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, p := range pairs {
		g.Go(func() error {
			res, err := c.comparePair(gctx, p)
			if err != nil {
				return err
			}
			results[i] = res
			out.done(i, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("❌ Comparison run aborted")
		return nil, err
	}

	run.Results = results
	run.Total = len(results)
	log.WithFields(logrus.Fields{
		"total":    run.Total,
		"duration": time.Since(run.StartedAt).String(),
	}).Info("✅ Comparison run finished")
	return run, nil
}

// pairs returns the sorted names to process: the intersection of both
// listings, plus one-sided names when IncludeMissing is set.
func (c *Comparer) pairs() ([]pair, error) {
	oldNames, err := c.cfg.Old.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", extractor.ErrIO, err)
	}
	newNames, err := c.cfg.New.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", extractor.ErrIO, err)
	}

	inNew := make(map[string]bool, len(newNames))
	for _, n := range newNames {
		inNew[n] = true
	}
	inOld := make(map[string]bool, len(oldNames))

	var pairs []pair
	for _, n := range oldNames {
		inOld[n] = true
		switch {
		case inNew[n]:
			pairs = append(pairs, pair{name: n})
		case c.cfg.IncludeMissing:
			pairs = append(pairs, pair{name: n, status: StatusMissingNew})
		}
	}
	if c.cfg.IncludeMissing {
		for _, n := range newNames {
			if !inOld[n] {
				pairs = append(pairs, pair{name: n, status: StatusMissingOld})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].name < pairs[j].name })
	return pairs, nil
}

func (c *Comparer) comparePair(ctx context.Context, p pair) (Result, error) {
	if p.status != "" {
		return Result{Name: p.name, Status: p.status, Differences: []string{}}, nil
	}

	res, err := c.CompareFiles(ctx, c.cfg.Old.Path(p.name), c.cfg.New.Path(p.name))
	res.Name = p.name
	if err == nil {
		return res, nil
	}
	if !c.cfg.KeepGoing || ctx.Err() != nil {
		return Result{}, fmt.Errorf("compare %s: %w", p.name, err)
	}

	c.cfg.Logger.WithField("file", p.name).Warnf("⚠️ Comparison failed, continuing: %v", err)
	return Result{Name: p.name, Status: StatusError, Err: err.Error(), Differences: []string{}}, nil
}

// CompareFiles extracts and diffs two documents. The result is named
// after the base name of oldPath.
func (c *Comparer) CompareFiles(ctx context.Context, oldPath, newPath string) (Result, error) {
	oldDoc, err := c.cfg.Extractor.Extract(ctx, oldPath)
	if err != nil {
		return Result{}, err
	}
	newDoc, err := c.cfg.Extractor.Extract(ctx, newPath)
	if err != nil {
		return Result{}, err
	}

	var opts []differ.Option
	if c.cfg.SourceLineNumbers {
		opts = append(opts, differ.WithSourceLineNumbers())
	}
	identical, annotations := differ.Diff(oldDoc.Lines, newDoc.Lines, opts...)
	if annotations == nil {
		// Serialized as [] rather than null.
		annotations = []string{}
	}

	res := Result{
		Name:        filepath.Base(oldPath),
		Identical:   identical,
		Differences: annotations,
		Status:      StatusDifferent,
		PagesOld:    oldDoc.Pages,
		PagesNew:    newDoc.Pages,
		LinesOld:    len(oldDoc.Lines),
		LinesNew:    len(newDoc.Lines),
	}
	if identical {
		res.Status = StatusIdentical
	}
	c.cfg.Logger.WithFields(logrus.Fields{
		"file":        res.Name,
		"status":      res.Status,
		"differences": len(annotations),
	}).Debug("📊 Compared document")
	return res, nil
}

// orderedPrinter writes results to the console in name order while
// workers may finish out of order.
type orderedPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	ready []*Result
	next  int
}

func newOrderedPrinter(w io.Writer, n int) *orderedPrinter {
	return &orderedPrinter{w: w, ready: make([]*Result, n)}
}

func (p *orderedPrinter) done(i int, r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready[i] = &r
	for p.next < len(p.ready) && p.ready[p.next] != nil {
		WriteResult(p.w, *p.ready[p.next])
		p.next++
	}
}
