package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"text2model/app/usecase"
	"text2model/internal/domain/entity"
	"text2model/internal/infrastructure/metrics"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type GenerationHandler struct {
	jobService      usecase.JobUsecase
	artifactService usecase.ArtifactUsecase
	configService   usecase.UserConfigUsecase
	pipeline        usecase.PipelineUsecase
	checks          map[string]HealthCheck
	logger          *slog.Logger
	upgrader        websocket.Upgrader

	watchInterval time.Duration
}

func NewGenerationHandler(
	jobService usecase.JobUsecase,
	artifactService usecase.ArtifactUsecase,
	configService usecase.UserConfigUsecase,
	pipeline usecase.PipelineUsecase,
	checks map[string]HealthCheck,
	logger *slog.Logger,
) *GenerationHandler {
	return &GenerationHandler{
		jobService:      jobService,
		artifactService: artifactService,
		configService:   configService,
		pipeline:        pipeline,
		checks:          checks,
		logger:          logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		watchInterval: time.Second,
	}
}

// SetWatchInterval changes how often watched jobs are polled.
func (h *GenerationHandler) SetWatchInterval(d time.Duration) {
	if d > 0 {
		h.watchInterval = d
	}
}

// withMetrics labels requests by route template so ids do not blow up label
// cardinality.
func (h *GenerationHandler) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		metrics.ObserveHTTPRequest(r.Method, path, rw.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the
// underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (h *GenerationHandler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/generations", h.withMetrics(h.handleCreateJob)).Methods(http.MethodPost)
	api.HandleFunc("/generations/run", h.withMetrics(h.handleRun)).Methods(http.MethodPost)
	api.HandleFunc("/generations", h.withMetrics(h.handleListJobs)).Methods(http.MethodGet)
	api.HandleFunc("/generations/{id}", h.withMetrics(h.handleGetJob)).Methods(http.MethodGet)
	api.HandleFunc("/generations/{id}", h.withMetrics(h.handleDeleteJob)).Methods(http.MethodDelete)
	api.HandleFunc("/generations/{id}/artifacts", h.withMetrics(h.handleGetArtifacts)).Methods(http.MethodGet)
	api.HandleFunc("/generations/{id}/watch", h.handleWatch).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/config", h.withMetrics(h.handleGetUserConfig)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/config", h.withMetrics(h.handlePutUserConfig)).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}/config", h.withMetrics(h.handleDeleteUserConfig)).Methods(http.MethodDelete)
	api.HandleFunc("/health", h.withMetrics(h.handleHealth)).Methods(http.MethodGet)

	// Prometheus
	r.Handle("/metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrEmptyPrompt),
		errors.Is(err, entity.ErrEmptyUserID),
		errors.Is(err, entity.ErrInvalidServiceID):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrJobRunning):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *GenerationHandler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	code := errorStatus(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(msg, append(attrs, "err", err)...)
	}
	writeError(w, code, err)
}

func decodeRequest(r *http.Request) (entity.GenerationRequest, error) {
	var req entity.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("bad request body: %w", err)
	}
	if err := usecase.ValidateRequest(&req); err != nil {
		return req, err
	}
	return req, nil
}

// POST /api/v1/generations
func (h *GenerationHandler) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	job, err := h.jobService.CreateJob(r.Context(), req)
	if err != nil {
		h.fail(w, "create job failed", err)
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

// POST /api/v1/generations/run runs the pipeline within the request. A failed
// run is reported with 502 and the same result body.
func (h *GenerationHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result := h.pipeline.Execute(r.Context(), req)
	code := http.StatusOK
	if !result.Success {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, result)
}

// GET /api/v1/generations[?status=]
func (h *GenerationHandler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var (
		jobs []*entity.Job
		err  error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		jobs, err = h.jobService.ListJobsByStatus(r.Context(), entity.JobStatus(status))
	} else {
		jobs, err = h.jobService.ListJobs(r.Context())
	}
	if err != nil {
		h.fail(w, "list jobs failed", err)
		return
	}
	if jobs == nil {
		jobs = []*entity.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GET /api/v1/generations/{id}
func (h *GenerationHandler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := h.jobService.GetJob(r.Context(), id)
	if err != nil {
		h.fail(w, "get job failed", err, "job_id", id)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// DELETE /api/v1/generations/{id}
func (h *GenerationHandler) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.jobService.DeleteJob(r.Context(), id); err != nil {
		h.fail(w, "delete job failed", err, "job_id", id)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// GET /api/v1/generations/{id}/artifacts
func (h *GenerationHandler) handleGetArtifacts(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.jobService.GetJob(r.Context(), id); err != nil {
		h.fail(w, "get job failed", err, "job_id", id)
		return
	}
	artifacts, err := h.artifactService.ListArtifacts(r.Context(), id)
	if err != nil {
		h.fail(w, "get artifacts failed", err, "job_id", id)
		return
	}
	if artifacts == nil {
		artifacts = []*entity.Artifact{}
	}
	writeJSON(w, http.StatusOK, artifacts)
}

// GET /api/v1/generations/{id}/watch streams the job as JSON every time its
// status changes and closes once the job is finished.
func (h *GenerationHandler) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := h.jobService.GetJob(r.Context(), id)
	if err != nil {
		h.fail(w, "get job failed", err, "job_id", id)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "job_id", id, "err", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			h.logger.Debug("websocket close err", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.watchInterval)
	defer ticker.Stop()

	var last entity.JobStatus
	for {
		if job.Status != last {
			if err := conn.WriteJSON(job); err != nil {
				h.logger.Debug("websocket write failed", "job_id", id, "err", err)
				return
			}
			last = job.Status
		}
		if job.IsTerminal() {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(job.Status)))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		next, err := h.jobService.GetJob(ctx, id)
		if err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
			return
		}
		job = next
	}
}

// GET /api/v1/users/{id}/config
func (h *GenerationHandler) handleGetUserConfig(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cfg, err := h.configService.GetConfig(r.Context(), id)
	if err != nil {
		h.fail(w, "get user config failed", err, "user_id", id)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PUT /api/v1/users/{id}/config
func (h *GenerationHandler) handlePutUserConfig(w http.ResponseWriter, r *http.Request) {
	var cfg entity.UserConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	cfg.UserID = mux.Vars(r)["id"]
	if err := h.configService.PutConfig(r.Context(), &cfg); err != nil {
		h.fail(w, "put user config failed", err, "user_id", cfg.UserID)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// DELETE /api/v1/users/{id}/config
func (h *GenerationHandler) handleDeleteUserConfig(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.configService.DeleteConfig(r.Context(), id); err != nil {
		h.fail(w, "delete user config failed", err, "user_id", id)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// GET /api/v1/health
func (h *GenerationHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ok := true
	deps := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			ok = false
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"ok":           ok,
		"ts":           time.Now().UTC(),
		"dependencies": deps,
	})
}
