// Package httpserver exposes document comparison over HTTP.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/jaywantadh/pdfdiff/internal/compare"
	"github.com/jaywantadh/pdfdiff/internal/extractor"
	"github.com/jaywantadh/pdfdiff/pkg/logging"
)

// MaxUploadBytes bounds the in-memory part of a /compare request.
const MaxUploadBytes = 64 << 20

// FileComparer compares two documents on disk.
type FileComparer interface {
	CompareFiles(ctx context.Context, oldPath, newPath string) (compare.Result, error)
}

// Server serves GET /health and POST /compare.
type Server struct {
	comparer FileComparer
	logger   *logrus.Logger
}

func New(comparer FileComparer, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{comparer: comparer, logger: logger}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Post("/compare", s.handleCompare)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("🌐 HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("🛑 Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithField("request_id", middleware.GetReqID(r.Context()))

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	dir, err := os.MkdirTemp("", "pdfdiff-upload-")
	if err != nil {
		log.WithError(err).Error("❌ Failed to create upload directory")
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer os.RemoveAll(dir)

	oldPath, err := saveUpload(r, "old", filepath.Join(dir, "old"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	newPath, err := saveUpload(r, "new", filepath.Join(dir, "new"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.comparer.CompareFiles(r.Context(), oldPath, newPath)
	if err != nil {
		log.WithError(err).Warn("⚠️ Comparison request failed")
		status := http.StatusInternalServerError
		if errors.Is(err, extractor.ErrExtraction) || errors.Is(err, extractor.ErrIO) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}
	log.WithFields(logrus.Fields{"file": res.Name, "status": res.Status}).Info("📊 Compared uploaded documents")
	writeJSON(w, http.StatusOK, res)
}

// saveUpload copies the multipart file field into dir, keeping its base
// name.
func saveUpload(r *http.Request, field, dir string) (string, error) {
	src, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing file field %q", field)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	name := uploadName(header)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to read %q: %w", field, err)
	}
	return dst.Name(), nil
}

func uploadName(h *multipart.FileHeader) string {
	name := filepath.Base(filepath.Clean("/" + h.Filename))
	if name == "/" || name == "." || name == "" {
		return "document.pdf"
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
