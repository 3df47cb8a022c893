// Package httpapi exposes the chat service as a small JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"shopbot/internal/domain"
	"shopbot/internal/service"
	"shopbot/internal/store"
)

// CredentialHeader carries a per-request language model credential.
const CredentialHeader = "X-LLM-API-Key"

// ChatPort is the HTTP-facing subset of the chat service.
type ChatPort interface {
	Ask(ctx context.Context, question string) (string, error)
	AskWithCredential(ctx context.Context, question, credential string) (string, error)
	AddDocument(ctx context.Context, text string) (string, error)
	Documents(ctx context.Context) ([]domain.Document, error)
	Conversation() []domain.Turn
	ResetConversation()
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

type documentRequest struct {
	Text string `json:"text"`
}

type documentResponse struct {
	ID       string            `json:"id"`
	Text     string            `json:"text,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP server.
type Server struct {
	chat   ChatPort
	logger *slog.Logger
	server *http.Server
}

func NewServer(addr string, chat ChatPort, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{chat: chat, logger: logger}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/api/documents", s.handleListDocuments).Methods(http.MethodGet)
	r.HandleFunc("/api/documents", s.handleAddDocument).Methods(http.MethodPost)
	r.HandleFunc("/api/session", s.handleSession).Methods(http.MethodGet)
	r.HandleFunc("/api/session/reset", s.handleReset).Methods(http.MethodPost)
	return r
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat handles POST /api/chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var (
		answer string
		err    error
	)
	if cred := r.Header.Get(CredentialHeader); cred != "" {
		answer, err = s.chat.AskWithCredential(r.Context(), req.Question, cred)
	} else {
		answer, err = s.chat.Ask(r.Context(), req.Question)
	}
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuestion) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "chat failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Answer: answer})
}

// handleListDocuments handles GET /api/documents
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.chat.Documents(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list documents failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentResponse{ID: d.ID, Text: d.Text, Metadata: d.Metadata})
	}
	respondJSON(w, http.StatusOK, out)
}

// handleAddDocument handles POST /api/documents
func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id, err := s.chat.AddDocument(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, store.ErrEmptyText) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "add document failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusCreated, documentResponse{ID: id})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	turns := s.chat.Conversation()
	if turns == nil {
		turns = []domain.Turn{}
	}
	respondJSON(w, http.StatusOK, turns)
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.chat.ResetConversation()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
