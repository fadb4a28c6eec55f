// Package server exposes the generation operations as a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/courseforge/courseforge/pkg/apierr"
	"github.com/courseforge/courseforge/pkg/audit"
	"github.com/courseforge/courseforge/pkg/cache"
	"github.com/courseforge/courseforge/pkg/config"
	"github.com/courseforge/courseforge/pkg/generate"
	"github.com/courseforge/courseforge/pkg/models"
)

const maxBodyBytes = 2 << 20

// routes maps the path segment after /api/generate/ to an operation.
var routes = map[string]string{
	"slides":        models.OpSlides,
	"exercises":     models.OpExercises,
	"quiz":          models.OpQuiz,
	"structure":     models.OpStructure,
	"images":        models.OpImages,
	"titles":        models.OpTitles,
	"outline":       models.OpOutline,
	"script":        models.OpScript,
	"review":        models.OpReview,
	"translate":     models.OpTranslate,
	"enhance-slide": models.OpEnhance,
}

// Server is the courseforge HTTP API.
type Server struct {
	cfg     *config.Config
	svc     *generate.Service
	cache   *cache.Cache
	auditor *audit.Logger
	mux     *http.ServeMux
	// pending tracks audit writes still in flight.
	pending sync.WaitGroup
}

// New creates a Server. c and a may be nil.
func New(cfg *config.Config, svc *generate.Service, c *cache.Cache, a *audit.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		cache:   c,
		auditor: a,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /api/generate/{operation}", s.handleGenerate)
	s.mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
		r.Header.Set("X-Request-ID", reqID)
	}
	w.Header().Set("X-Request-ID", reqID)

	if s.cors(w, r) {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("handler panic", "request_id", reqID, "path", r.URL.Path, "panic", rec)
			apierr.Write(w, apierr.Internal(fmt.Errorf("panic: %v", rec)))
		}
	}()
	s.mux.ServeHTTP(w, r)
}

// cors applies the configured origin allow-list and answers preflight
// requests. It reports whether the request was fully handled.
func (s *Server) cors(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.CORSOrigins) == 0 {
		return false
	}
	if !slices.Contains(s.cfg.CORSOrigins, "*") && !slices.Contains(s.cfg.CORSOrigins, origin) {
		return false
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-Courseforge-Cache")
	h.Add("Vary", "Origin")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// ListenAndServe starts the server and shuts it down gracefully when ctx ends.
// It returns only after pending audit writes finish, so the audit log can be
// closed right after.
func (s *Server) ListenAndServe(ctx context.Context) error {
	defer s.Wait()

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("courseforge listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	op, ok := routes[r.PathValue("operation")]
	if !ok {
		apierr.Write(w, &apierr.Error{
			Status:     apierr.StatusError,
			Code:       apierr.CodeInvalidRequest,
			Message:    "unknown operation " + r.PathValue("operation"),
			HTTPStatus: http.StatusNotFound,
		})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierr.Write(w, &apierr.Error{
				Status:     apierr.StatusError,
				Code:       apierr.CodeInvalidRequest,
				Message:    "request body too large",
				HTTPStatus: http.StatusRequestEntityTooLarge,
			})
			return
		}
		apierr.Write(w, apierr.Invalid("read request body: %v", err))
		return
	}

	var tr generate.Trace
	ctx := generate.WithTrace(r.Context(), &tr)
	result, err := s.svc.Dispatch(ctx, op, body)

	ev := models.GenerationEvent{
		RequestID: r.Header.Get("X-Request-ID"),
		Operation: op,
		CacheKey:  tr.CacheKey,
		CacheHit:  tr.CacheHit,
		Provider:  tr.Provider,
		Status:    audit.StatusOK,
		LatencyMs: time.Since(start).Milliseconds(),
		CreatedAt: start,
	}

	if err != nil {
		e := apierr.From(err)
		ev.Status = e.Status
		ev.ErrorCode = e.Code
		level := slog.LevelWarn
		if e.HTTPStatus >= 500 {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "generation failed",
			"request_id", ev.RequestID,
			"operation", op,
			"code", e.Code,
			"error", e,
		)
		s.logEvent(ev)
		apierr.Write(w, e)
		return
	}

	cacheState := "miss"
	if tr.CacheHit {
		cacheState = "hit"
	}
	w.Header().Set("X-Courseforge-Cache", cacheState)
	slog.Info("generation complete",
		"request_id", ev.RequestID,
		"operation", op,
		"cache", cacheState,
		"provider", tr.Provider,
		"latency_ms", ev.LatencyMs,
	)
	s.logEvent(ev)
	writeJSON(w, http.StatusOK, result)
}

// Wait blocks until every audit write started by a request has finished.
func (s *Server) Wait() {
	s.pending.Wait()
}

func (s *Server) logEvent(ev models.GenerationEvent) {
	if s.auditor == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.auditor.Log(ctx, ev); err != nil {
			slog.Warn("audit log error", "request_id", ev.RequestID, "error", err)
		}
	}()
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}
