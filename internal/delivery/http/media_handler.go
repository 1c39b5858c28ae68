package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhishekpatel946/replicate-media-generation/internal/domain"
	"github.com/abhishekpatel946/replicate-media-generation/internal/repository"
	"github.com/abhishekpatel946/replicate-media-generation/internal/storage"
	"github.com/abhishekpatel946/replicate-media-generation/internal/usecase"
)

// MediaHandler handles HTTP requests for media generation jobs.
type MediaHandler struct {
	submitUC  *usecase.SubmitJobUsecase
	getJobUC  *usecase.GetJobUsecase
	cancelUC  *usecase.CancelJobUsecase
	listUC    *usecase.ListJobsUsecase
	artifacts storage.ArtifactStore
	logger    *zap.Logger
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(
	submitUC *usecase.SubmitJobUsecase,
	getJobUC *usecase.GetJobUsecase,
	cancelUC *usecase.CancelJobUsecase,
	listUC *usecase.ListJobsUsecase,
	artifacts storage.ArtifactStore,
	logger *zap.Logger,
) *MediaHandler {
	return &MediaHandler{
		submitUC:  submitUC,
		getJobUC:  getJobUC,
		cancelUC:  cancelUC,
		listUC:    listUC,
		artifacts: artifacts,
		logger:    logger,
	}
}

// Submit handles POST /api/v1/generate
func (h *MediaHandler) Submit(c *gin.Context) {
	var req domain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	resp, err := h.submitUC.Execute(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyPrompt), errors.Is(err, domain.ErrUnknownModel):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrPromptTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrPublishFailed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		default:
			h.logger.Error("Submit job failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetStatus handles GET /api/v1/status/:id
func (h *MediaHandler) GetStatus(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	job, err := h.getJobUC.Execute(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Get job failed", zap.Error(err), zap.String("job_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// Download handles GET /api/v1/download/:id
func (h *MediaHandler) Download(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	job, err := h.getJobUC.Execute(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Get job failed", zap.Error(err), zap.String("job_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if job.Status != domain.StatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Job is not completed (status: %s)", job.Status),
		})
		return
	}

	data, err := h.artifacts.GetBytes(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrArtifactNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found for job"})
			return
		}
		h.logger.Error("Artifact read failed", zap.Error(err), zap.String("job_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="generated_%s.png"`, id))
	c.Data(http.StatusOK, "image/png", data)
}

// GetMetadata handles GET /api/v1/jobs/:id/metadata
func (h *MediaHandler) GetMetadata(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	// The job must exist even if its metadata is gone.
	if _, err := h.getJobUC.Execute(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Get job failed", zap.Error(err), zap.String("job_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	meta, err := h.artifacts.GetMetadata(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrArtifactNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Metadata not found for job"})
			return
		}
		h.logger.Error("Metadata read failed", zap.Error(err), zap.String("job_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, meta)
}

// List handles GET /api/v1/jobs
func (h *MediaHandler) List(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Limit  int    `form:"limit"`
		Offset int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	filter := repository.ListFilter{Limit: query.Limit, Offset: query.Offset}
	if query.Status != "" {
		status := domain.JobStatus(query.Status)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		filter.Status = &status
	}

	jobs, err := h.listUC.Execute(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("List jobs failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if jobs == nil {
		jobs = []*domain.Job{}
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// Cancel handles DELETE /api/v1/jobs/:id
func (h *MediaHandler) Cancel(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	err := h.cancelUC.Execute(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		case errors.Is(err, domain.ErrInvalidState):
			c.JSON(http.StatusConflict, gin.H{"error": "Job is already in a terminal state"})
		default:
			h.logger.Error("Cancel job failed", zap.Error(err), zap.String("job_id", id.String()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Job cancelled"})
}

func (h *MediaHandler) jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID format"})
		return uuid.Nil, false
	}
	return id, true
}
