package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/assistant-core/server/internal/agent/graph"
	"github.com/assistant-core/server/internal/agent/model"
	errx "github.com/assistant-core/server/internal/core/error"
	"github.com/assistant-core/server/internal/document"
	logx "github.com/assistant-core/server/pkg/logger"
)

// Config holds the HTTP listener settings.
type Config struct {
	Addr           string `envconfig:"SERVER_ADDR" default:":8080"`
	MaxUploadBytes int64  `envconfig:"SERVER_MAX_UPLOAD_BYTES" default:"20971520"`
}

// Reindexer is the external index-rebuild hook triggered after an upload.
// It is fire-and-forget: failures are logged, never surfaced to the caller.
type Reindexer interface {
	Reindex(ctx context.Context) error
}

// NoopReindexer satisfies Reindexer when no index exists.
type NoopReindexer struct{}

func (NoopReindexer) Reindex(context.Context) error { return nil }

// Extractor converts raw PDF bytes into text and a page count.
type Extractor func(data []byte) (text string, pages int, err error)

// Server exposes the assistant over HTTP: chat invocation, document upload
// and status, and a health probe.
type Server struct {
	cfg       Config
	runner    graph.Runner
	documents *document.Store
	reindexer Reindexer
	extract   Extractor
}

// Deps carries the collaborators the server routes to.
type Deps struct {
	Runner    graph.Runner
	Documents *document.Store
	Reindexer Reindexer
	// Extract defaults to document.ExtractText when nil.
	Extract Extractor
}

func New(cfg Config, deps Deps) *Server {
	if deps.Extract == nil {
		deps.Extract = document.ExtractText
	}
	if deps.Reindexer == nil {
		deps.Reindexer = NoopReindexer{}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	return &Server{
		cfg:       cfg,
		runner:    deps.Runner,
		documents: deps.Documents,
		reindexer: deps.Reindexer,
		extract:   deps.Extract,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /agent/invoke", s.handleInvoke)
	mux.HandleFunc("POST /documents/upload", s.handleUpload)
	mux.HandleFunc("GET /documents/status", s.handleStatus)
	return mux
}

// ListenAndServe blocks serving HTTP until the listener fails.
func (s *Server) ListenAndServe() error {
	logx.Info().Str("addr", s.cfg.Addr).Msg("assistant server listening")
	return http.ListenAndServe(s.cfg.Addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type invokeRequest struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
}

type invokeResponse struct {
	Output string `json:"output"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	output, err := s.runner.Invoke(r.Context(), model.QueryInput{
		SessionID: req.SessionID,
		Input:     req.Input,
	})
	if err != nil {
		logx.Error().Err(err).Str("session_id", req.SessionID).Msg("assistant invocation failed")
		var appErr *errx.Error
		if errors.As(err, &appErr) {
			writeError(w, appErr.Status, appErr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("assistant pipeline failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, invokeResponse{Output: output})
}

type uploadResponse struct {
	Pages int `json:"pages"`
	Bytes int `json:"bytes"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing 'file' form field")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "only .pdf files are accepted")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	text, pages, err := s.extract(data)
	if err != nil {
		logx.Warn().Err(err).Str("filename", filename).Msg("pdf extraction failed")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("could not extract text from PDF: %v", err))
		return
	}

	// Wholesale replacement of the single global slot; last writer wins.
	s.documents.Put(document.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		Pages:      pages,
		Bytes:      len(data),
		Text:       text,
		UploadedAt: time.Now(),
	})
	logx.Info().Str("filename", filename).Int("pages", pages).Int("bytes", len(data)).Msg("document loaded")

	// Fire-and-forget index rebuild; failures are logged, not surfaced.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.reindexer.Reindex(ctx); err != nil {
			logx.Warn().Err(err).Msg("reindex hook failed")
		}
	}()

	writeJSON(w, http.StatusOK, uploadResponse{Pages: pages, Bytes: len(data)})
}

type statusResponse struct {
	Loaded     bool   `json:"loaded"`
	Filename   string `json:"filename,omitempty"`
	Pages      int    `json:"pages,omitempty"`
	Bytes      int    `json:"bytes,omitempty"`
	UploadedAt string `json:"uploaded_at,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.documents.Snapshot()
	if !ok {
		writeJSON(w, http.StatusOK, statusResponse{Loaded: false})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Loaded:     true,
		Filename:   doc.Filename,
		Pages:      doc.Pages,
		Bytes:      doc.Bytes,
		UploadedAt: doc.UploadedAt.Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
