// Package api exposes the reconcile engine over HTTP: ad hoc evaluation,
// reference table inspection, run history and on-demand reconcile runs.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/monitoring"
	"github.com/sells-group/partner-cli/internal/reconcile"
	"github.com/sells-group/partner-cli/internal/store"
)

// Server holds the handler dependencies.
type Server struct {
	engine *reconcile.Engine
	store  store.Store

	// running guards against overlapping reconcile runs.
	running sync.Mutex
}

// NewServer creates a Server. st may be nil, which disables the endpoints
// that read or write the record store.
func NewServer(engine *reconcile.Engine, st store.Store) *Server {
	return &Server{engine: engine, store: st}
}

// Router builds the chi router with CORS, request IDs, panic recovery and
// access logging.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluate)
		r.Get("/tables/zones", s.handleZones)
		r.Get("/tables/businesses", s.handleBusinesses)

		r.Group(func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/report", s.handleReport)
			r.Get("/runs", s.handleRuns)
			r.Get("/metrics", s.handleMetrics)
			r.Post("/reconcile", s.handleReconcile)
		})
	})
	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			writeError(w, http.StatusServiceUnavailable, "record store not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEvaluate runs the engine on a partner in the request body without
// touching the store.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var p model.Partner
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Evaluate(p))
}

func (s *Server) handleZones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Tables().Zones)
}

func (s *Server) handleBusinesses(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		b, ok := s.engine.Tables().Lookup(name)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown business")
			return
		}
		writeJSON(w, http.StatusOK, b)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Tables().Businesses)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	partners, err := s.store.ListPartners(r.Context(), store.PartnerFilter{})
	if err != nil {
		zap.L().Error("report: list partners", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to list partners")
		return
	}
	writeJSON(w, http.StatusOK, reconcile.Distribute(partners))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Limit:  queryInt(q.Get("limit"), 20),
		Offset: queryInt(q.Get("offset"), 0),
	}
	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("runs: list", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleMetrics summarizes the most recent runs; lookback defaults to 20.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	lookback := queryInt(r.URL.Query().Get("lookback"), 20)
	snap, err := monitoring.NewCollector(s.store).Collect(r.Context(), lookback)
	if err != nil {
		zap.L().Error("metrics: collect", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to collect metrics")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type reconcileRequest struct {
	DryRun      bool `json:"dry_run"`
	OnlyUnzoned bool `json:"only_unzoned"`
	Concurrency int  `json:"concurrency"`
	Limit       int  `json:"limit"`
}

// handleReconcile runs a reconcile pass synchronously and returns its
// summary. A second request while a run is in progress gets 409.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if !s.running.TryLock() {
		writeError(w, http.StatusConflict, "a reconcile run is already in progress")
		return
	}
	defer s.running.Unlock()

	driver := reconcile.NewDriver(s.store, s.engine)
	summary, err := driver.Run(r.Context(), reconcile.Options{
		DryRun:      req.DryRun,
		OnlyUnzoned: req.OnlyUnzoned,
		Concurrency: req.Concurrency,
		Limit:       req.Limit,
	})
	if err != nil {
		zap.L().Error("reconcile run failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "reconcile run failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func queryInt(v string, fallback int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
