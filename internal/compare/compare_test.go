package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaywantadh/pdfdiff/internal/extractor"
	"github.com/jaywantadh/pdfdiff/internal/storage"
)

// fakeExtractor serves documents by base directory and file name.
type fakeExtractor struct {
	mu    sync.Mutex
	docs  map[string]extractor.Document
	errs  map[string]error
	calls []string
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (extractor.Document, error) {
	if err := ctx.Err(); err != nil {
		return extractor.Document{}, err
	}
	key := filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path))

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if err, ok := f.errs[key]; ok {
		return extractor.Document{}, err
	}
	doc, ok := f.docs[key]
	if !ok {
		return extractor.Document{}, fmt.Errorf("%w: no fixture for %s", extractor.ErrIO, key)
	}
	return doc, nil
}

func doc(lines ...string) extractor.Document {
	return extractor.Document{Lines: lines, Pages: 1}
}

// setup creates old/ and new/ directories holding empty files with the
// given names.
func setup(t *testing.T, oldNames, newNames []string) (storage.Location, storage.Location) {
	t.Helper()
	root := t.TempDir()
	mk := func(dir string, names []string) storage.Location {
		p := filepath.Join(root, dir)
		require.NoError(t, os.MkdirAll(p, 0755))
		for _, n := range names {
			require.NoError(t, os.WriteFile(filepath.Join(p, n), nil, 0644))
		}
		return storage.NewLocalDir(p)
	}
	return mk("old", oldNames), mk("new", newNames)
}

func newComparer(t *testing.T, cfg Config) *Comparer {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestRunIntersection(t *testing.T) {
	oldLoc, newLoc := setup(t, []string{"a.pdf", "b.pdf"}, []string{"b.pdf", "c.pdf"})
	ex := &fakeExtractor{docs: map[string]extractor.Document{
		"old/b.pdf": doc("same"),
		"new/b.pdf": doc("same"),
	}}
	var out bytes.Buffer

	run, err := newComparer(t, Config{Old: oldLoc, New: newLoc, Extractor: ex, Console: &out}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, run.Total)
	require.Len(t, run.Results, 1)
	assert.Equal(t, "b.pdf", run.Results[0].Name)
	assert.NotContains(t, out.String(), "a.pdf")
	assert.NotContains(t, out.String(), "c.pdf")
	assert.NotEmpty(t, run.ID)
	assert.ElementsMatch(t, []string{"old/b.pdf", "new/b.pdf"}, ex.calls)
}

func TestRunIdenticalFile(t *testing.T) {
	oldLoc, newLoc := setup(t, []string{"x.pdf"}, []string{"x.pdf"})
	ex := &fakeExtractor{docs: map[string]extractor.Document{
		"old/x.pdf": doc("Hello", "", "World"),
		"new/x.pdf": doc("Hello", "", "World"),
	}}
	var out bytes.Buffer

	run, err := newComparer(t, Config{Old: oldLoc, New: newLoc, Extractor: ex, Console: &out}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "x.pdf is identical\n", out.String())
	require.Len(t, run.Results, 1)
	r := run.Results[0]
	assert.True(t, r.Identical)
	assert.Equal(t, StatusIdentical, r.Status)
	assert.Empty(t, r.Differences)
	assert.NotNil(t, r.Differences)
	assert.Equal(t, 3, r.LinesOld)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"differences":[]`)
}

func TestRunDifferentFile(t *testing.T) {
	oldLoc, newLoc := setup(t, []string{"report.pdf"}, []string{"report.pdf"})
	ex := &fakeExtractor{docs: map[string]extractor.Document{
		"old/report.pdf": doc("Total: 100", "Status: OK"),
		"new/report.pdf": doc("Total: 120", "Status: OK"),
	}}
	var out bytes.Buffer

	run, err := newComparer(t, Config{Old: oldLoc, New: newLoc, Extractor: ex, Console: &out}).Run(context.Background())
	require.NoError(t, err)

	r := run.Results[0]
	assert.False(t, r.Identical)
	assert.Equal(t, StatusDifferent, r.Status)
	assert.Equal(t, []string{"Line 0: - Total: 100", "Line 1: + Total: 120"}, r.Differences)

	want := "report.pdf is different\n" +
		"Differences found:\n" +
		"Line 0: - Total: 100\n" +
		"Line 1: + Total: 120\n" +
		strings.Repeat("-", 50) + "\n"
	assert.Equal(t, want, out.String())
}

func TestRunSortedOrderWithWorkers(t *testing.T) {
	names := []string{"d.pdf", "a.pdf", "c.pdf", "b.pdf", "e.pdf"}
	oldLoc, newLoc := setup(t, names, names)
	ex := &fakeExtractor{docs: map[string]extractor.Document{}}
	for _, n := range names {
		ex.docs["old/"+n] = doc(n)
		ex.docs["new/"+n] = doc(n)
	}
	var out bytes.Buffer

	run, err := newComparer(t, Config{Old: oldLoc, New: newLoc, Extractor: ex, Console: &out, Workers: 3}).Run(context.Background())
	require.NoError(t, err)

	var got []string
	for _, r := range run.Results {
		got = append(got, r.Name)
	}
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"}, got)
	assert.Equal(t, "a.pdf is identical\nb.pdf is identical\nc.pdf is identical\nd.pdf is identical\ne.pdf is identical\n", out.String())
}

func TestRunAbortsOnFirstError(t *testing.T) {
	oldLoc, newLoc := setup(t, []string{"a.pdf", "b.pdf"}, []string{"a.pdf", "b.pdf"})
	ex := &fakeExtractor{
		docs: map[string]extractor.Document{"old/b.pdf": doc("x"), "new/b.pdf": doc("x")},
		errs: map[string]error{"old/a.pdf": fmt.Errorf("%w: broken xref", extractor.ErrExtraction)},
	}

	run, err := newComparer(t, Config{Old: oldLoc, New: newLoc, Extractor: ex, Console: &bytes.Buffer{}}).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, run)
	assert.True(t, errors.Is(err, extractor.ErrExtraction))
	assert.Contains(t, err.Error(), "a.pdf")
}

func TestRunKeepGoing(t *testing.T) {
	oldLoc, newLoc := setup(t, []string{"a.pdf", "b.pdf"}, []string{"a.pdf", "b.pdf"})
	ex := &fakeExtractor{
		docs: map[string]extractor.Document{"old/a.pdf": doc("x"), "old/b.pdf": doc("x"), "new/b.pdf": doc("x")},
		errs: map[string]error{"new/a.pdf": fmt.Errorf("%w: broken xref", extractor.ErrExtraction)},
	}
	var out bytes.Buffer

	run, err := newComparer(t, Config{Old: oldLoc, New: newLoc, Extractor: ex, Console: &out, KeepGoing: true}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, run.Results, 2)
	assert.Equal(t, StatusError, run.Results[0].Status)
	assert.Contains(t, run.Results[0].Err, "broken xref")
	assert.NotNil(t, run.Results[0].Differences)
	assert.Equal(t, StatusIdentical, run.Results[1].Status)
	assert.Equal(t, 2, run.Total)
	assert.True(t, strings.HasPrefix(out.String(), "a.pdf failed: extraction error: broken xref\n"))
}

func TestRunIncludeMissing(t *testing.T) {
	oldLoc, newLoc := setup(t, []string{"a.pdf", "b.pdf"}, []string{"b.pdf", "c.pdf"})
	ex := &fakeExtractor{docs: map[string]extractor.Document{
		"old/b.pdf": doc("same"),
		"new/b.pdf": doc("same"),
	}}
	var out bytes.Buffer

	run, err := newComparer(t, Config{Old: oldLoc, New: newLoc, Extractor: ex, Console: &out, IncludeMissing: true}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, run.Results, 3)
	assert.Equal(t, StatusMissingNew, run.Results[0].Status)
	assert.Equal(t, StatusIdentical, run.Results[1].Status)
	assert.Equal(t, StatusMissingOld, run.Results[2].Status)
	for _, r := range run.Results {
		assert.NotNil(t, r.Differences, r.Name)
	}
	assert.Equal(t, 3, run.Total)
	assert.Equal(t, "a.pdf is missing in new\nb.pdf is identical\nc.pdf is missing in old\n", out.String())
}

func TestRunUnreadableLocation(t *testing.T) {
	_, newLoc := setup(t, nil, []string{"a.pdf"})
	missing := storage.NewLocalDir(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := newComparer(t, Config{Old: missing, New: newLoc, Extractor: &fakeExtractor{}, Console: &bytes.Buffer{}}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, extractor.ErrIO))
	assert.True(t, errors.Is(err, storage.ErrUnreadable))
}

func TestRunCancelled(t *testing.T) {
	oldLoc, newLoc := setup(t, []string{"a.pdf"}, []string{"a.pdf"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newComparer(t, Config{Old: oldLoc, New: newLoc, Extractor: &fakeExtractor{}, Console: &bytes.Buffer{}, KeepGoing: true}).Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunEmptyIntersection(t *testing.T) {
	oldLoc, newLoc := setup(t, []string{"a.pdf"}, []string{"b.pdf"})
	var out bytes.Buffer

	run, err := newComparer(t, Config{Old: oldLoc, New: newLoc, Extractor: &fakeExtractor{}, Console: &out}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, run.Total)
	assert.Empty(t, out.String())
}

func TestNewRequiresLocationsAndExtractor(t *testing.T) {
	_, err := New(Config{Extractor: &fakeExtractor{}})
	assert.Error(t, err)

	oldLoc, newLoc := setup(t, nil, nil)
	_, err = New(Config{Old: oldLoc, New: newLoc})
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	var out bytes.Buffer
	WriteSummary(&out, 4)
	assert.Equal(t, "\nReport generated with 4 files compared.\n", out.String())
}
