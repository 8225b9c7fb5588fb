package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/roach88/causeway/internal/engine"
	"github.com/roach88/causeway/internal/graph"
	"github.com/roach88/causeway/internal/ir"
	"github.com/roach88/causeway/internal/trace"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = "127.0.0.1:7977"

// maxChunkSize bounds a POSTed chunk.
const maxChunkSize = 16 << 20

// Config configures a Server.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server serves one engine.
type Server struct {
	engine *engine.Engine
	hub    *Hub
	logger *slog.Logger
	router *chi.Mux
	http   *http.Server
}

// New creates a server for e. hub must be registered with e as a
// controller for /ws to receive notifications; nil disables /ws.
func New(e *engine.Engine, hub *Hub, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		engine: e,
		hub:    hub,
		logger: cfg.Logger,
	}
	s.setupRouter(cfg.AllowedOrigins)
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.http.Addr, "session", s.engine.Session())
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.hub != nil {
			s.hub.Close()
		}
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info("server stopped", "addr", s.http.Addr)
		return nil
	}
}

func (s *Server) setupRouter(origins []string) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/nodes", s.handleGetNodes)
		r.Get("/links", s.handleGetLinks)
		r.Get("/stats", s.handleGetStats)
		r.Get("/snapshot", s.handleGetSnapshot)
		r.Get("/entities/{id}", s.handleGetEntity)

		r.Post("/chunks", s.handlePostChunk)
		r.Post("/strings", s.handlePostStrings)
	})

	if s.hub != nil {
		r.Get("/ws", s.hub.ServeHTTP)
	}

	s.router = r
}

// requestLogger logs each request through the server's slog logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleGetNodes(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.History().Snapshot().Nodes)
}

func (s *Server) handleGetLinks(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.History().Snapshot().Links)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.History().Snapshot())
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	Session         string      `json:"session"`
	Seq             int64       `json:"seq"`
	Entities        int         `json:"entities"`
	Groups          int         `json:"groups"`
	Messages        int         `json:"messages"`
	MaxMessageSends int         `json:"max_message_sends"`
	Strings         int         `json:"strings"`
	Decoder         trace.Stats `json:"decoder"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.engine.History().Snapshot()
	respondJSON(w, http.StatusOK, StatsResponse{
		Session:         s.engine.Session(),
		Seq:             s.engine.Seq(),
		Entities:        snap.Entities,
		Groups:          snap.Groups,
		Messages:        snap.Messages,
		MaxMessageSends: snap.MaxMessageSends,
		Strings:         s.engine.Strings().Len(),
		Decoder:         s.engine.Stats(),
	})
}

// EntityResponse is the body of GET /api/v1/entities/{id}.
type EntityResponse struct {
	Entity ir.Entity      `json:"entity"`
	Node   graph.NodeView `json:"node"`
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	raw, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid entity id")
		return
	}
	id := ir.ActivityID(raw)

	var (
		resp  EntityResponse
		found bool
	)
	s.engine.History().Read(func(m *graph.Model) {
		e, ok := m.Registry().Entity(id)
		if !ok {
			return
		}
		n, _ := m.Resolve(id)
		resp = EntityResponse{Entity: *e, Node: graph.ViewOf(n)}
		found = true
	})
	if !found {
		respondError(w, http.StatusNotFound, "entity not found")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// FormatErrorResponse is the 422 body for a malformed chunk.
type FormatErrorResponse struct {
	Error    string      `json:"error"`
	Code     string      `json:"code"`
	Seq      int64       `json:"seq"`
	Offset   int         `json:"offset"`
	Missing  int         `json:"missing"`
	Entities []ir.Entity `json:"entities"`
}

func (s *Server) handlePostChunk(w http.ResponseWriter, r *http.Request) {
	chunk, err := io.ReadAll(io.LimitReader(r.Body, maxChunkSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(chunk) > maxChunkSize {
		respondError(w, http.StatusRequestEntityTooLarge, "chunk too large")
		return
	}

	res, err := s.engine.Feed(r.Context(), chunk)
	if err != nil {
		var fe *trace.FormatError
		if errors.As(err, &fe) {
			respondJSON(w, http.StatusUnprocessableEntity, FormatErrorResponse{
				Error:    err.Error(),
				Code:     string(fe.Code),
				Seq:      res.Seq,
				Offset:   fe.Offset,
				Missing:  fe.Missing,
				Entities: nonNil(res.Entities),
			})
			return
		}
		s.logger.Error("ingest failed", "seq", res.Seq, "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	res.Entities = nonNil(res.Entities)
	respondJSON(w, http.StatusOK, res)
}

// StringsRequest is the body of POST /api/v1/strings.
type StringsRequest struct {
	IDs    []uint32 `json:"ids"`
	Values []string `json:"values"`
}

func (s *Server) handlePostStrings(w http.ResponseWriter, r *http.Request) {
	var req StringsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) != len(req.Values) {
		respondError(w, http.StatusBadRequest, "ids and values differ in length")
		return
	}
	if err := s.engine.AddStrings(r.Context(), req.IDs, req.Values); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"added": len(req.IDs), "total": s.engine.Strings().Len()})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func nonNil(entities []ir.Entity) []ir.Entity {
	if entities == nil {
		return []ir.Entity{}
	}
	return entities
}
