package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/scheduler"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// JobRunner starts scheduler jobs on demand and reports their state
type JobRunner interface {
	Trigger(job string) (scheduler.SyncRun, error)
	Jobs() []scheduler.JobState
	GetJobHistory(limit int) []scheduler.SyncRun
}

// SyncHandler exposes manual triggers and run history of the sync jobs
type SyncHandler struct {
	BaseHandler
	runner JobRunner
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(runner JobRunner) *SyncHandler {
	return &SyncHandler{runner: runner}
}

// TriggerJob godoc
// @Summary      Start a sync job now
// @Description  Uses the same single-run gate as the schedule: a running job answers 409
// @Tags         sync
// @Produce      json
// @Param        job  path  string  true  "Job name"  Enums(catalog, stock, collections)
// @Success      202 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /api/v1/sync/{job} [post]
func (h *SyncHandler) TriggerJob(c *gin.Context) {
	job := c.Param("job")
	run, err := h.runner.Trigger(job)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		h.NotFound(c, "Unknown sync job: "+job)
	case errors.Is(err, scheduler.ErrJobAlreadyRunning):
		h.Conflict(c, "Sync job is already running: "+job)
	case err != nil:
		h.InternalError(c, err.Error())
	default:
		h.Accepted(c, run)
	}
}

// ListJobs godoc
// @Summary      List registered sync jobs
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /api/v1/sync/jobs [get]
func (h *SyncHandler) ListJobs(c *gin.Context) {
	h.Success(c, h.runner.Jobs())
}

// ListRuns godoc
// @Summary      Recent sync runs, newest first
// @Tags         sync
// @Produce      json
// @Param        limit  query  int  false  "Maximum runs returned (1-100)"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /api/v1/sync/runs [get]
func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			h.BadRequest(c, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}
	h.Success(c, h.runner.GetJobHistory(limit))
}

// RegisterRoutes mounts the sync endpoints under the versioned API group
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	sync.GET("/jobs", h.ListJobs)
	sync.GET("/runs", h.ListRuns)
	sync.POST("/:job", h.TriggerJob)
}
