package pipeline

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/domain/file"
	"intakeflow/internal/middleware"
	"intakeflow/internal/pkg/apperr"
	"intakeflow/internal/pkg/response"
)

type Handler struct {
	files        file.Repository
	results      enrichment.Repository
	scheduler    *Scheduler
	mode         *ModeSwitch
	exposeErrors bool
}

func NewHandler(files file.Repository, results enrichment.Repository, scheduler *Scheduler, mode *ModeSwitch, exposeErrors bool) *Handler {
	return &Handler{
		files:        files,
		results:      results,
		scheduler:    scheduler,
		mode:         mode,
		exposeErrors: exposeErrors,
	}
}

type ProcessAccepted struct {
	FileID string `json:"fileId"`
	Mock   bool   `json:"mock"`
}

type MockModeRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type MockModeResponse struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) Status(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.files.GetByID(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	ps, err := h.results.ProcessingStatus(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ps)
}

func (h *Handler) Transcript(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.files.GetByID(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	t, err := h.results.FindTranscript(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, t)
}

func (h *Handler) Analysis(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.files.GetByID(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	a, err := h.results.FindAnalysis(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, a)
}

// Process schedules a run and returns without waiting for it.
// ?mock=true|false overrides the mock default for this run only.
func (h *Handler) Process(c *gin.Context) {
	id := c.Param("id")
	f, err := h.files.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !f.IsAudio() {
		response.Error(c, http.StatusBadRequest, apperr.CodeValidation, "only audio files can be processed")
		return
	}

	var override *bool
	if raw, ok := c.GetQuery("mock"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, apperr.CodeValidation, "mock must be true or false")
			return
		}
		override = &v
	}

	if !h.scheduler.ScheduleMode(id, middleware.ActorID(c), override) {
		response.Error(c, http.StatusServiceUnavailable, apperr.CodeServiceUnavailable, "server is shutting down")
		return
	}

	mock := h.mode.Default()
	if override != nil {
		mock = *override
	}
	response.Success(c, http.StatusAccepted, ProcessAccepted{FileID: id, Mock: mock})
}

func (h *Handler) GetMockMode(c *gin.Context) {
	response.Success(c, http.StatusOK, MockModeResponse{Enabled: h.mode.Default()})
}

func (h *Handler) SetMockMode(c *gin.Context) {
	var req MockModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, apperr.CodeValidation, "enabled must be a boolean")
		return
	}
	h.mode.SetDefault(*req.Enabled)
	response.Success(c, http.StatusOK, MockModeResponse{Enabled: h.mode.Default()})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, file.ErrFileNotFound):
		response.FromError(c, apperr.NotFound("file not found", err), h.exposeErrors)
	case errors.Is(err, enrichment.ErrTranscriptNotFound):
		response.FromError(c, apperr.NotFound("no transcript yet", err), h.exposeErrors)
	case errors.Is(err, enrichment.ErrAnalysisNotFound):
		response.FromError(c, apperr.NotFound("no analysis yet", err), h.exposeErrors)
	default:
		response.FromError(c, err, h.exposeErrors)
	}
}
