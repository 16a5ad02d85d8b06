// Package api provides the HTTP server and handlers.
package api

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/webdump/webdump/internal/classify"
	"github.com/webdump/webdump/internal/logging"
	"github.com/webdump/webdump/internal/metrics"
	"github.com/webdump/webdump/internal/page"
	"github.com/webdump/webdump/internal/scan"
	"github.com/webdump/webdump/webapp"
)

// Pool gzip writers to reduce allocations on the index endpoint.
var gzipPool = sync.Pool{
	New: func() any { return gzip.NewWriter(nil) },
}

// Server is the HTTP server. Every request to the index rebuilds the page
// from a fresh scan; no scan results are cached across requests.
type Server struct {
	root       string
	recursive  bool
	builder    *page.Builder
	classifier *classify.Classifier
	log        *zap.Logger
}

// NewServer creates a new server rooted at root, which must be an absolute,
// symlink-resolved directory path.
func NewServer(log *zap.Logger, root string, recursive bool, builder *page.Builder, classifier *classify.Classifier) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		root:       root,
		recursive:  recursive,
		builder:    builder,
		classifier: classifier,
		log:        log,
	}
}

// Handler returns the HTTP handler with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /files/{path...}", s.handleFile)

	staticFS, _ := fs.Sub(webapp.Assets, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	return metrics.Middleware(logging.Middleware(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	body, err := s.builder.BuildPage(r.Context(), s.root, s.recursive)
	if err != nil {
		if errors.Is(err, scan.ErrNotADirectory) {
			s.log.Error("scan root unavailable", zap.String("root", s.root), zap.Error(err))
			s.sendError(w, http.StatusServiceUnavailable, "scan root unavailable")
			return
		}
		if r.Context().Err() != nil {
			// Client went away mid-build; nothing useful to send.
			return
		}
		s.log.Error("page build failed", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "page build failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		gw := gzipPool.Get().(*gzip.Writer)
		gw.Reset(w)
		gw.Write(body)
		gw.Close()
		gzipPool.Put(gw)
		return
	}

	w.Write(body)
}

// handleFile serves a raw file from under the scan root. Paths that would
// escape the root and entries that are not regular files are reported as
// not found. Range and conditional requests are delegated to ServeContent
// so video previews can seek.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	abs, ok := s.resolve(r.PathValue("path"))
	if !ok {
		metrics.RecordFileServed(0, false)
		s.sendError(w, http.StatusNotFound, "file not found")
		return
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		metrics.RecordFileServed(0, false)
		s.sendError(w, http.StatusNotFound, "file not found")
		return
	}

	f, err := os.Open(abs)
	if err != nil {
		s.log.Warn("failed to open file", zap.String("path", abs), zap.Error(err))
		metrics.RecordFileServed(0, false)
		s.sendError(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()

	// Content type comes from sniffing, not the filename, so a misnamed
	// file is served with its true type.
	res, err := s.classifier.Classify(abs)
	if err != nil {
		s.log.Debug("classification failed", zap.String("path", abs), zap.Error(err))
	}
	if res.MIME != "" {
		ct := res.MIME
		if strings.HasPrefix(ct, "text/") {
			ct += "; charset=utf-8"
		}
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}

	cw := &countingWriter{ResponseWriter: w}
	http.ServeContent(cw, r, info.Name(), info.ModTime(), f)
	metrics.RecordFileServed(cw.bytes, true)
}

// resolve maps a slash-separated relative request path to an absolute path
// strictly inside the scan root.
func (s *Server) resolve(rel string) (string, bool) {
	if rel == "" || strings.HasPrefix(rel, "/") {
		return "", false
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(s.root, clean), true
}

type countingWriter struct {
	http.ResponseWriter
	bytes int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.ResponseWriter.Write(b)
	c.bytes += int64(n)
	return n, err
}

func (c *countingWriter) Unwrap() http.ResponseWriter {
	return c.ResponseWriter
}

func acceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": message,
		"code":  code,
	})
}
