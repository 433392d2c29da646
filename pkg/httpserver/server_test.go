package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaywantadh/pdfdiff/internal/compare"
	"github.com/jaywantadh/pdfdiff/internal/extractor"
	"github.com/jaywantadh/pdfdiff/internal/storage"
	"github.com/jaywantadh/pdfdiff/internal/testpdf"
)

type stubComparer struct {
	gotOld, gotNew []byte
	res            compare.Result
	err            error
}

func (s *stubComparer) CompareFiles(_ context.Context, oldPath, newPath string) (compare.Result, error) {
	s.gotOld, _ = os.ReadFile(oldPath)
	s.gotNew, _ = os.ReadFile(newPath)
	if s.err != nil {
		return compare.Result{}, s.err
	}
	res := s.res
	res.Name = filepath.Base(oldPath)
	return res, nil
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	srv := New(&stubComparer{}, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestCompareSuccess(t *testing.T) {
	stub := &stubComparer{res: compare.Result{
		Status:      compare.StatusDifferent,
		Differences: []string{"Line 0: - Total: 100", "Line 1: + Total: 120"},
		LinesOld:    2,
		LinesNew:    2,
	}}
	body, ct := multipartBody(t, map[string]string{"old": "old bytes", "new": "new bytes"})
	req := httptest.NewRequest(http.MethodPost, "/compare", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	New(stub, nil).Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "old bytes", string(stub.gotOld))
	assert.Equal(t, "new bytes", string(stub.gotNew))

	var got compare.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Identical)
	assert.Equal(t, "old.pdf", got.Name)
	assert.Len(t, got.Differences, 2)
	assert.Equal(t, 2, got.LinesNew)
}

func TestCompareIdenticalHasEmptyDifferences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.pdf")
	testpdf.Write(t, path, []string{"Hello", "World"})
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	ex, err := extractor.New(extractor.Options{}, nil)
	require.NoError(t, err)
	cmp, err := compare.New(compare.Config{
		Old:       storage.NewLocalDir(dir),
		New:       storage.NewLocalDir(dir),
		Extractor: ex,
	})
	require.NoError(t, err)

	body, ct := multipartBody(t, map[string]string{"old": string(data), "new": string(data)})
	req := httptest.NewRequest(http.MethodPost, "/compare", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	New(cmp, nil).Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"identical"`)
	assert.Contains(t, rec.Body.String(), `"differences":[]`)
}

func TestCompareMissingField(t *testing.T) {
	body, ct := multipartBody(t, map[string]string{"old": "a"})
	req := httptest.NewRequest(http.MethodPost, "/compare", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	New(&stubComparer{}, nil).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `missing file field \"new\"`)
}

func TestCompareNotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/compare", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	New(&stubComparer{}, nil).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompareExtractionFailure(t *testing.T) {
	stub := &stubComparer{err: fmt.Errorf("%w: not a pdf", extractor.ErrExtraction)}
	body, ct := multipartBody(t, map[string]string{"old": "junk", "new": "junk"})
	req := httptest.NewRequest(http.MethodPost, "/compare", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	New(stub, nil).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a pdf")
}

func TestCompareWithRealExtractor(t *testing.T) {
	dir := t.TempDir()
	oldPDF := filepath.Join(dir, "a.pdf")
	newPDF := filepath.Join(dir, "b.pdf")
	testpdf.Write(t, oldPDF, []string{"Total: 100", "Status: OK"})
	testpdf.Write(t, newPDF, []string{"Total: 120", "Status: OK"})

	ex, err := extractor.New(extractor.Options{Backend: extractor.BackendRSC}, nil)
	require.NoError(t, err)
	cmp, err := compare.New(compare.Config{
		Old:       storage.NewLocalDir(dir),
		New:       storage.NewLocalDir(dir),
		Extractor: ex,
	})
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, path := range map[string]string{"old": oldPDF, "new": newPDF} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		fw, err := mw.CreateFormFile(field, "report.pdf")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/compare", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	New(cmp, nil).Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got compare.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "report.pdf", got.Name)
	assert.Equal(t, compare.StatusDifferent, got.Status)
	assert.Equal(t, []string{"Line 0: - Total: 100", "Line 1: + Total: 120"}, got.Differences)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	New(&stubComparer{}, nil).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/compare", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
