package file

import (
	"bytes"
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"intakeflow/internal/ingest"
	"intakeflow/internal/middleware"
	"intakeflow/internal/pkg/apperr"
	"intakeflow/internal/pkg/response"
	"intakeflow/internal/pkg/validator"
)

type Handler struct {
	service      *Service
	gateway      *ingest.Gateway
	exposeErrors bool
}

func NewHandler(service *Service, gateway *ingest.Gateway, exposeErrors bool) *Handler {
	return &Handler{service: service, gateway: gateway, exposeErrors: exposeErrors}
}

// Upload accepts a multipart request with one "file" part and the optional
// businessType, businessId and projectId fields.
func (h *Handler) Upload(c *gin.Context) {
	up, err := h.gateway.Receive(c.Request)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.service.Register(c.Request.Context(), up, RegisterInput{
		BusinessType: up.Fields["businessType"],
		BusinessID:   up.Fields["businessId"],
		ProjectID:    up.Fields["projectId"],
		Actor:        middleware.ActorID(c),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

func (h *Handler) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, apperr.CodeValidation, "invalid query parameters")
		return
	}
	if errs := validator.Validate(q); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, apperr.CodeValidation, "invalid query parameters", errs)
		return
	}

	result, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *Handler) Info(c *gin.Context) {
	f, err := h.service.GetInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// Download streams the original, or the thumbnail with ?thumbnail=true.
// ?download=true switches the disposition to attachment.
func (h *Handler) Download(c *gin.Context) {
	content, err := h.service.Content(c.Request.Context(), c.Param("id"), c.Query("thumbnail") == "true")
	if err != nil {
		h.writeError(c, err)
		return
	}

	disposition := "inline"
	if c.Query("download") == "true" {
		disposition = "attachment"
	}
	header := c.Writer.Header()
	header.Set("Content-Type", content.MimeType)
	header.Set("Accept-Ranges", "bytes")
	header.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": content.Filename}))

	// Content-Length comes from the bytes actually read, not the stored size.
	http.ServeContent(c.Writer, c.Request, content.Filename, content.UpdatedAt, bytes.NewReader(content.Data))
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), middleware.ActorID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrFileNotFound):
		response.FromError(c, apperr.NotFound("file not found", err), h.exposeErrors)
	case errors.Is(err, ErrThumbnailNotFound):
		response.FromError(c, apperr.NotFound("thumbnail not found", err), h.exposeErrors)
	case errors.Is(err, ErrContentMissing):
		response.FromError(c, apperr.NotFound("file content not found", err), h.exposeErrors)
	case errors.Is(err, ErrInvalidBusinessType):
		response.Error(c, http.StatusBadRequest, apperr.CodeValidation, err.Error())
	default:
		response.FromError(c, err, h.exposeErrors)
	}
}
