package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cacconnect/registrar/internal/turn"
	"github.com/cacconnect/registrar/internal/upload"
)

// Turner handles one chat turn.
type Turner interface {
	HandleTurn(ctx context.Context, sessionKey, userText string) (string, error)
}

// Uploader stores one uploaded document.
type Uploader interface {
	Handle(ctx context.Context, sessionKey, kind string, data []byte, originalName string) (string, error)
}

// maxUploadBytes bounds a single multipart upload.
const maxUploadBytes = 10 << 20

// Server is the HTTP surface. turns and uploads are nil when the store was
// unreachable at startup; the endpoints that need storage then return 503
// instead of the process crashing.
type Server struct {
	router    *chi.Mux
	port      int
	uploadDir string
	turns     Turner
	uploads   Uploader
	logger    *slog.Logger
}

func NewServer(port int, uploadDir string, turns Turner, uploads Uploader, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		uploadDir: uploadDir,
		turns:     turns,
		uploads:   uploads,
		logger:    logger,
	}

	router.Get("/", s.index)
	router.Get("/health", s.health)
	router.Get("/api/v1/registrar/status", s.status)
	router.Post("/api/chat/{agentID}", s.chat)
	router.Post("/api/upload", s.upload)
	router.Get("/uploads/{filename}", s.serveUpload)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<h1>Business Registration Assistant Backend</h1>")
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	storage := "ok"
	if s.turns == nil {
		storage = "unavailable"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "registrar",
		"storage": storage,
	})
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	if s.turns == nil {
		writeError(w, http.StatusServiceUnavailable, "storage is not available")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "Missing message or session_id")
		return
	}

	agentID := chi.URLParam(r, "agentID")
	s.logger.Info("chat turn", "agent_id", agentID, "session_key", req.SessionID)

	reply, err := s.turns.HandleTurn(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, turn.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("turn failed", "session_key", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if s.uploads == nil {
		writeError(w, http.StatusServiceUnavailable, "storage is not available")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	sessionID := r.FormValue("session_id")
	fileType := r.FormValue("file_type")
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable file part")
		return
	}

	fileURL, err := s.uploads.Handle(r.Context(), sessionID, fileType, data, header.Filename)
	if err != nil {
		if errors.Is(err, upload.ErrInvalidUpload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("upload failed", "session_key", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"file_url": fileURL,
	})
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.uploadDir, name))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
