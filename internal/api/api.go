// Package api exposes the admin HTTP surface: manual sync triggers,
// job-run inspection, and a health probe.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"mma_v2/ingestion/internal/backfill"
	"mma_v2/ingestion/internal/models"
	"mma_v2/ingestion/internal/repository"
)

// SyncRunner triggers sync runs
type SyncRunner interface {
	RunIncremental(ctx context.Context) (*backfill.RunStats, error)
	RunFull(ctx context.Context) (*backfill.RunStats, error)
}

// JobStore reads recorded job runs
type JobStore interface {
	Get(ctx context.Context, jobName string) (*models.JobRun, error)
	List(ctx context.Context) ([]*models.JobRun, error)
}

// HealthChecker answers liveness probes
type HealthChecker interface {
	Health(ctx context.Context) error
}

// handler carries the API dependencies. running serializes manual sync
// triggers: a second trigger while one is in flight gets a 409 instead
// of a concurrent run.
type handler struct {
	runner  SyncRunner
	jobs    JobStore
	health  HealthChecker
	running sync.Mutex
}

// jobRunResponse is the wire shape of a job-run row
type jobRunResponse struct {
	JobName    string    `json:"job_name"`
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	Processed  int       `json:"processed"`
	Added      int       `json:"added"`
	Failed     int       `json:"failed"`
	Error      *string   `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func toJobRunResponse(run *models.JobRun) jobRunResponse {
	resp := jobRunResponse{
		JobName:    run.JobName,
		RunID:      run.RunID,
		Status:     run.Status,
		Processed:  run.Processed,
		Added:      run.Added,
		Failed:     run.Failed,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if run.Error.Valid {
		resp.Error = &run.Error.String
	}
	return resp
}

// NewRouter builds the gin engine with all admin routes registered
func NewRouter(runner SyncRunner, jobs JobStore, health HealthChecker, isDev bool) *gin.Engine {
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &handler{runner: runner, jobs: jobs, health: health}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.healthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sync/incremental", h.triggerSync(func(ctx context.Context) (*backfill.RunStats, error) {
			return h.runner.RunIncremental(ctx)
		}))
		v1.POST("/sync/full", h.triggerSync(func(ctx context.Context) (*backfill.RunStats, error) {
			return h.runner.RunFull(ctx)
		}))
		v1.GET("/jobs", h.listJobs)
		v1.GET("/jobs/:name", h.getJob)
	}

	return router
}

// triggerSync runs a sync synchronously and returns its stats. Long
// full backfills are expected; callers use the job endpoints to poll a
// run they did not wait for.
func (h *handler) triggerSync(run func(ctx context.Context) (*backfill.RunStats, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.running.TryLock() {
			c.JSON(http.StatusConflict, gin.H{"error": "a sync run is already in progress"})
			return
		}
		defer h.running.Unlock()

		stats, err := run(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("Manually triggered sync failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": err.Error(),
				"stats": stats,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": stats.Status(),
			"stats":  stats,
		})
	}
}

func (h *handler) listJobs(c *gin.Context) {
	runs, err := h.jobs.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list job runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]jobRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toJobRunResponse(run))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": resp})
}

func (h *handler) getJob(c *gin.Context) {
	name := c.Param("name")

	run, err := h.jobs.Get(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, repository.ErrJobRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no recorded run for job " + name})
			return
		}
		log.Error().Err(err).Str("job", name).Msg("Failed to get job run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toJobRunResponse(run))
}

func (h *handler) healthCheck(c *gin.Context) {
	if err := h.health.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Server wraps the admin API's http.Server lifecycle
type Server struct {
	srv *http.Server
}

// NewServer creates the admin API server on the given address
func NewServer(addr string, runner SyncRunner, jobs JobStore, health HealthChecker, isDev bool) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(runner, jobs, health, isDev),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Minute, // manual full backfills run synchronously
		},
	}
}

// Start blocks serving requests until Shutdown is called
func (s *Server) Start() error {
	log.Info().Str("addr", s.srv.Addr).Msg("Starting admin API server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
