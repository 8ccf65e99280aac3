// Package dashboard serves the annotation review surface over HTTP and MCP:
// list and filter annotations, update their status, search, and export.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/devlens/annotation"
	"github.com/hazyhaar/devlens/dom"
	"github.com/hazyhaar/devlens/inspect"
	"github.com/hazyhaar/devlens/perf"
	"github.com/hazyhaar/devlens/selector"
)

// StatsSnapshot is the live page telemetry attached to GET /api/stats.
type StatsSnapshot struct {
	Perf    perf.Stats        `json:"perf"`
	Process *perf.ProcessInfo `json:"process,omitempty"`
}

// StatsProvider returns the current telemetry snapshot; nil means no
// overlay session is attached.
type StatsProvider func() StatsSnapshot

// SnapshotProvider captures the attached page's current HTML. Nil means no
// page is attached and describe operations are unavailable.
type SnapshotProvider func(ctx context.Context) (string, error)

// Config configures the dashboard server.
type Config struct {
	// Addr is the listen address.
	Addr string
	// Origins restricts CORS; empty allows any origin, which is the
	// default for a localhost-only dev tool.
	Origins []string
	// AdminTokenHash is the bcrypt hash guarding destructive bulk
	// operations. Empty disables them.
	AdminTokenHash string
	Stats          StatsProvider
	Snapshot       SnapshotProvider
	Logger         *slog.Logger
}

// Server is the dashboard: an annotation store plus a search index behind
// chi routes. The index is kept in sync through a store subscription.
type Server struct {
	store     *annotation.Store
	index     *annotation.Index
	stats     StatsProvider
	snapshot  SnapshotProvider
	logger    *slog.Logger
	adminHash string
	handler   http.Handler
	srv       *http.Server
	addr      string
	unsub     func()
}

// NewServer builds the dashboard over a store. The caller owns the store;
// the server owns its search index and the subscription keeping it fresh.
func NewServer(store *annotation.Store, cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	index, err := annotation.NewIndex()
	if err != nil {
		return nil, fmt.Errorf("dashboard: search index: %w", err)
	}
	s := &Server{
		store:     store,
		index:     index,
		stats:     cfg.Stats,
		snapshot:  cfg.Snapshot,
		logger:    logger,
		adminHash: cfg.AdminTokenHash,
		addr:      cfg.Addr,
	}

	if err := index.Sync(store.Read()); err != nil {
		index.Close()
		return nil, fmt.Errorf("dashboard: initial index sync: %w", err)
	}
	s.unsub = store.Subscribe(func(int) {
		if err := s.index.Sync(s.store.Read()); err != nil {
			s.logger.Warn("dashboard: index sync failed", "error", err)
		}
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/annotations", s.handleList)
		r.Post("/annotations", s.handleCreate)
		r.Delete("/annotations", s.requireAdmin(s.handleClear))
		r.Get("/annotations/search", s.handleSearch)
		r.Patch("/annotations/{id}/status", s.handleUpdateStatus)
		r.Delete("/annotations/{id}", s.handleDelete)
		r.Get("/export", s.handleExport)
		r.Get("/stats", s.handleStats)
		r.Get("/describe", s.handleDescribe)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins(cfg.Origins),
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	s.handler = c.Handler(r)
	return s, nil
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("dashboard: listening", "addr", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard: serve: %w", err)
	}
	return nil
}

// Shutdown stops the listener and releases the index and the store
// subscription.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	var err error
	if s.srv != nil {
		err = s.srv.Shutdown(ctx)
	}
	if cerr := s.index.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := annotation.ParseFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	list := annotation.Filtered(s.store.Read(), filter)
	writeJSON(w, http.StatusOK, map[string]any{
		"annotations": list,
		"count":       len(list),
	})
}

type createRequest struct {
	Selector string            `json:"selector"`
	Comment  string            `json:"comment"`
	Prompt   string            `json:"prompt,omitempty"`
	Snippet  string            `json:"snippet,omitempty"`
	Target   annotation.Target `json:"target"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if req.Selector == "" {
		writeError(w, http.StatusBadRequest, errors.New("selector is required"))
		return
	}
	a, err := s.store.Save(r.Context(), annotation.Annotation{
		Selector: req.Selector,
		Comment:  req.Comment,
		Prompt:   req.Prompt,
		Snippet:  req.Snippet,
		Target:   req.Target,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	status, err := annotation.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.UpdateStatus(r.Context(), id, status); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	a, ok := s.store.Get(id)
	if !ok {
		// Unknown IDs are a silent no-op in the store; report that truthfully.
		writeJSON(w, http.StatusOK, map[string]any{"updated": false, "id": id})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, errors.New("q is required"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	ids, err := s.index.Search(query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	list := make([]annotation.Annotation, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.store.Get(id); ok {
			list = append(list, a)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"annotations": list,
		"count":       len(list),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := annotation.ParseFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	list := annotation.Filtered(s.store.Read(), filter)
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		out, err := annotation.ExportJSON(list)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		fmt.Fprint(w, out)
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, annotation.ExportMarkdown(list))
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown export format %q", format))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"total":  s.store.Count(),
		"counts": annotation.Counts(s.store.Read()),
	}
	if s.stats != nil {
		snap := s.stats()
		resp["perf"] = snap.Perf
		if snap.Process != nil {
			resp["process"] = snap.Process
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

var (
	errNoPage  = errors.New("no page attached")
	errNoMatch = errors.New("no element matches selector")
)

// describe captures the attached page and describes the first element
// matching sel. The descriptor reflects the page at capture time.
func (s *Server) describe(ctx context.Context, sel string) (*inspect.Descriptor, error) {
	if s.snapshot == nil {
		return nil, errNoPage
	}
	page, err := s.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot page: %w", err)
	}
	doc, err := dom.ParseString(page)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	matches := selector.Match(doc, sel)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", errNoMatch, sel)
	}
	return inspect.Describe(matches[0], nil), nil
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	sel := strings.TrimSpace(r.URL.Query().Get("selector"))
	if sel == "" {
		writeError(w, http.StatusBadRequest, errors.New("selector is required"))
		return
	}
	d, err := s.describe(r.Context(), sel)
	switch {
	case errors.Is(err, errNoPage):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, errNoMatch):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, d)
	}
}

// requireAdmin guards destructive bulk operations behind a bearer token
// checked against the configured bcrypt hash.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminHash == "" {
			writeError(w, http.StatusForbidden, errors.New("admin operations are disabled"))
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(token)); err != nil {
			writeError(w, http.StatusForbidden, errors.New("invalid admin token"))
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimPrefix(h, prefix), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
