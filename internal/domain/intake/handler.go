package intake

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"intakeflow/internal/middleware"
	"intakeflow/internal/pkg/apperr"
	"intakeflow/internal/pkg/response"
	"intakeflow/internal/pkg/validator"
)

type Handler struct {
	service      *Service
	exposeErrors bool
}

func NewHandler(service *Service, exposeErrors bool) *Handler {
	return &Handler{service: service, exposeErrors: exposeErrors}
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

func (h *Handler) Get(c *gin.Context) {
	detail, err := h.service.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, apperr.CodeValidation, "invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, apperr.CodeValidation, "invalid request body", errs)
		return
	}

	in, err := h.service.Create(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, in)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrIntakeNotFound):
		response.FromError(c, apperr.NotFound("intake not found", err), h.exposeErrors)
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrTitleRequired):
		response.Error(c, http.StatusBadRequest, apperr.CodeValidation, err.Error())
	default:
		response.FromError(c, err, h.exposeErrors)
	}
}
