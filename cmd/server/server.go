// cmd/server/server.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/etoile-yachts/MediaValidator/internal/config"
	"github.com/etoile-yachts/MediaValidator/internal/engine"
	"github.com/etoile-yachts/MediaValidator/internal/export"
	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/monitoring"
	"github.com/etoile-yachts/MediaValidator/internal/store"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

// server holds the HTTP surface's collaborators.
type server struct {
	cfg      *config.Config
	engine   *engine.Engine
	reports  store.ReportStore
	exporter *export.Manager
	metrics  *monitoring.Metrics
	health   *monitoring.HealthManager
	log      utils.Logger

	// runCtx outlives individual requests. Validation runs started over
	// HTTP are bound to it, not to the request context, so they keep
	// going after the start handler returns. It is canceled at shutdown.
	runCtx    context.Context
	runCancel context.CancelFunc
}

func newServer(cfg *config.Config, eng *engine.Engine, reports store.ReportStore, exporter *export.Manager, metrics *monitoring.Metrics, health *monitoring.HealthManager) *server {
	runCtx, runCancel := context.WithCancel(context.Background())
	return &server{
		cfg:       cfg,
		engine:    eng,
		reports:   reports,
		exporter:  exporter,
		metrics:   metrics,
		health:    health,
		log:       utils.NewComponentLogger("server"),
		runCtx:    runCtx,
		runCancel: runCancel,
	}
}

// shutdown cancels any in-flight validation run.
func (s *server) shutdown() {
	s.runCancel()
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()

	r.Handle("/health", s.health.Handler()).Methods("GET")
	if s.metrics != nil {
		r.Handle(s.cfg.Server.MetricsPath, s.metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/validation/start", s.startValidationHandler).Methods("POST")
	api.HandleFunc("/validation/stop", s.stopValidationHandler).Methods("POST")
	api.HandleFunc("/validation/resume", s.resumeValidationHandler).Methods("POST")
	api.HandleFunc("/validation/progress", s.progressHandler).Methods("GET")

	api.HandleFunc("/reports/validation", s.listValidationReportsHandler).Methods("GET")
	api.HandleFunc("/reports/validation/{id}", s.getValidationReportHandler).Methods("GET")
	api.HandleFunc("/reports/validation/{id}/export", s.exportReportHandler).Methods("POST")
	api.HandleFunc("/reports/repair", s.listRepairReportsHandler).Methods("GET")
	api.HandleFunc("/reports/repair/{id}", s.getRepairReportHandler).Methods("GET")

	api.HandleFunc("/repair/from-report/{id}", s.repairFromReportHandler).Methods("POST")
	api.HandleFunc("/repair/relative-urls", s.fixRelativeURLsHandler).Methods("POST")
	api.HandleFunc("/repair/blob-urls", s.resolveBlobURLsHandler).Methods("POST")

	return s.loggingMiddleware(r)
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request handled")
	})
}

func (s *server) startValidationHandler(w http.ResponseWriter, r *http.Request) {
	var opts engine.Options
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			s.writeError(w, http.StatusBadRequest, utils.NewError(utils.ErrCodeInvalidConfig, "invalid request body"))
			return
		}
	}

	if err := s.engine.Start(s.runCtx, opts); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": engine.StatusRunning,
	})
}

func (s *server) stopValidationHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Stop(); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"stopping": true,
	})
}

func (s *server) resumeValidationHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Resume(s.runCtx); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": engine.StatusRunning,
	})
}

func (s *server) progressHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Progress())
}

func (s *server) listValidationReportsHandler(w http.ResponseWriter, r *http.Request) {
	page, pageSize := paginationParams(r)
	reports, err := s.reports.ListValidationReports(r.Context(), page, pageSize)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if reports == nil {
		reports = []*media.ValidationReport{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"page":    page,
		"total":   len(reports),
	})
}

func (s *server) getValidationReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.GetValidationReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *server) exportReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.GetValidationReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	paths, err := s.exporter.ExportReport(report)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"files": paths,
	})
}

func (s *server) listRepairReportsHandler(w http.ResponseWriter, r *http.Request) {
	page, pageSize := paginationParams(r)
	reports, err := s.reports.ListRepairReports(r.Context(), page, pageSize)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if reports == nil {
		reports = []*media.RepairReport{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"page":    page,
		"total":   len(reports),
	})
}

func (s *server) getRepairReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.GetRepairReport(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *server) repairFromReportHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URLs []string `json:"urls,omitempty"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, utils.NewError(utils.ErrCodeInvalidConfig, "invalid request body"))
			return
		}
	}

	report, err := s.engine.RepairFromReport(r.Context(), mux.Vars(r)["id"], body.URLs...)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *server) fixRelativeURLsHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BaseURL string `json:"base_url,omitempty"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, utils.NewError(utils.ErrCodeInvalidConfig, "invalid request body"))
			return
		}
	}
	if body.BaseURL == "" {
		body.BaseURL = s.cfg.Engine.BaseURL
	}

	report, err := s.engine.FixRelativeURLs(r.Context(), body.BaseURL)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *server) resolveBlobURLsHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.ResolveBlobURLs(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Errorf("failed to encode response: %v", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"code":  string(utils.CodeOf(err)),
	})
}

// writeEngineError maps state-machine rejections to 409.
func (s *server) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case utils.IsCode(err, utils.ErrCodeInvalidState):
		status = http.StatusConflict
	case utils.IsCode(err, utils.ErrCodeInvalidConfig):
		status = http.StatusBadRequest
	}
	s.writeError(w, status, err)
}

func (s *server) writeLookupError(w http.ResponseWriter, err error) {
	if utils.IsCode(err, utils.ErrCodeNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err)
}

func paginationParams(r *http.Request) (int, int) {
	page := 1
	pageSize := 20
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}
	return page, pageSize
}
