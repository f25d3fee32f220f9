// Package server exposes the assistant over a chi REST API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kampusasistani/rag/internal/auth"
	"github.com/kampusasistani/rag/internal/registry"
	"github.com/kampusasistani/rag/internal/service"
)

// maxUploadBytes caps multipart PDF uploads.
const maxUploadBytes = 64 << 20

// Credential is one username/password pair accepted by the login endpoint.
type Credential struct {
	Password string
	Role     string
}

// HTTPServer wraps the HTTP server and its routes.
type HTTPServer struct {
	server *http.Server
	router *chi.Mux
	logger *slog.Logger

	documents   *service.DocumentService
	assistant   *service.AssistantService
	jwtManager  *auth.JWTManager
	credentials map[string]Credential
}

// HTTPServerConfig holds configuration for the HTTP server
type HTTPServerConfig struct {
	Port           int
	Logger         *slog.Logger
	AllowedOrigins []string // CORS allowed origins

	Documents   *service.DocumentService
	Assistant   *service.AssistantService
	JWTManager  *auth.JWTManager
	Credentials map[string]Credential
}

// NewHTTPServer creates the HTTP server with all routes registered.
func NewHTTPServer(cfg HTTPServerConfig) (*HTTPServer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPServer{
		logger:      logger,
		documents:   cfg.Documents,
		assistant:   cfg.Assistant,
		jwtManager:  cfg.JWTManager,
		credentials: cfg.Credentials,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	router.Get("/healthz", healthCheckHandler())
	router.Get("/readyz", readinessCheckHandler())

	router.Post("/api/login", s.handleLogin)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTManager))

		r.Post("/api/query", s.handleQuery)
		r.Get("/api/documents", s.handleListDocuments)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/api/documents", s.handleUploadDocument)
			r.Delete("/api/documents/{filename}", s.handleDeleteDocument)
			r.Get("/api/analytics/queries", s.handleRecentQueries)
		})
	})

	s.router = router
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // ingestion and LLM calls are slow
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// GetRouter returns the underlying chi router for additional route registration
func (s *HTTPServer) GetRouter() *chi.Mux {
	return s.router
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cred, ok := s.credentials[req.Username]
	if !ok || cred.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.jwtManager.GenerateToken(req.Username, cred.Role)
	if err != nil {
		s.logger.Error("failed to generate token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, Role: cred.Role})
}

type queryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	Answer      string           `json:"answer"`
	Sources     []answerSource   `json:"sources"`
	IsNegative  bool             `json:"is_negative"`
	Diagnostics queryDiagnostics `json:"diagnostics"`
}

type answerSource struct {
	Filename string `json:"filename"`
	Pages    []int  `json:"pages"`
}

type queryDiagnostics struct {
	Strategy         string `json:"strategy"`
	PlannerFallback  bool   `json:"planner_fallback"`
	RerankerFallback bool   `json:"reranker_fallback"`
	Candidates       int    `json:"candidates"`
}

func (s *HTTPServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = claims.Username
	}

	result, err := s.assistant.Ask(r.Context(), claims.Username, sessionID, req.Question)
	if err != nil {
		s.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}

	sources := make([]answerSource, 0, len(result.Answer.Sources))
	for _, src := range result.Answer.Sources {
		sources = append(sources, answerSource{Filename: src.Filename, Pages: src.Pages})
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:     result.Answer.Text,
		Sources:    sources,
		IsNegative: result.Answer.IsNegative,
		Diagnostics: queryDiagnostics{
			Strategy:         string(result.Strategy),
			PlannerFallback:  result.PlannerFallback,
			RerankerFallback: result.RerankerFallback,
			Candidates:       result.CandidatesScanned,
		},
	})
}

type documentResponse struct {
	Filename        string    `json:"filename"`
	Owner           string    `json:"owner"`
	Title           string    `json:"title"`
	PageCount       int       `json:"page_count"`
	ChunkCount      int       `json:"chunk_count"`
	NeedsStructured bool      `json:"needs_structured"`
	ClassifyReason  string    `json:"classify_reason,omitempty"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

func (s *HTTPServer) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *HTTPServer) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	result, err := s.documents.Upload(r.Context(), header.Filename, claims.Username, file)
	if err != nil {
		s.logger.Error("upload failed", "file", header.Filename, "error", err)
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("ingestion failed: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentResponse(result.Document))
}

func (s *HTTPServer) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if err := s.documents.Delete(r.Context(), filename); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("delete failed", "file", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleRecentQueries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.assistant.RecentQueries(r.Context(), 100)
	if err != nil {
		s.logger.Error("failed to read query log", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read query log")
		return
	}

	type entryResponse struct {
		Username string    `json:"username"`
		Question string    `json:"question"`
		AskedAt  time.Time `json:"asked_at"`
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{Username: e.Username, Question: e.Question, AskedAt: e.AskedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": out})
}

func toDocumentResponse(d *registry.Document) documentResponse {
	return documentResponse{
		Filename:        d.Filename,
		Owner:           d.Owner,
		Title:           d.Title,
		PageCount:       d.PageCount,
		ChunkCount:      d.ChunkCount,
		NeedsStructured: d.NeedsStructured,
		ClassifyReason:  d.ClassifyReason,
		UploadedAt:      d.UploadedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", duration,
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Check if origin is allowed
			allowed := false
			if len(allowedOrigins) == 0 {
				// If no origins specified, allow all in development
				allowed = true
				origin = "*"
			} else {
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token, X-Request-ID")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// healthCheckHandler returns a handler for the /healthz endpoint
func healthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// readinessCheckHandler returns a handler for the /readyz endpoint
func readinessCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
