package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"intakeflow/internal/pkg/apperr"
)

type envelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
}

func render(t *testing.T, err error, expose bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	FromError(c, err, expose)

	var body envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr, body
}

func TestFromErrorKeepsAppErrorStatus(t *testing.T) {
	rr, body := render(t, fmt.Errorf("wrap: %w", apperr.TooLarge("file exceeds 30MB")), false)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.False(t, body.Success)
	assert.Equal(t, apperr.CodeFileTooLarge, body.Error.Code)
	assert.Equal(t, "file exceeds 30MB", body.Error.Message)
}

func TestFromErrorMapsGormSentinels(t *testing.T) {
	rr, body := render(t, gorm.ErrRecordNotFound, false)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apperr.CodeNotFound, body.Error.Code)

	rr, body = render(t, gorm.ErrDuplicatedKey, false)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apperr.CodeConflict, body.Error.Code)
}

func TestFromErrorSuppressesDetailUnlessExposed(t *testing.T) {
	rr, body := render(t, errors.New("db exploded"), false)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Nil(t, body.Error.Details)

	_, body = render(t, errors.New("db exploded"), true)
	assert.Equal(t, "db exploded", body.Error.Details)
}

func TestFromErrorNotFoundKeepsHandlerMessage(t *testing.T) {
	missing := errors.New("file not found")
	rr, body := render(t, apperr.NotFound("no transcript yet", missing), true)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apperr.CodeNotFound, body.Error.Code)
	assert.Equal(t, "no transcript yet", body.Error.Message)
	assert.Nil(t, body.Error.Details)
}

func TestFromErrorInternalWrapsCause(t *testing.T) {
	rr, body := render(t, apperr.Internal(errors.New("disk full")), false)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, apperr.CodeInternal, body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.Nil(t, body.Error.Details)

	_, body = render(t, apperr.Internal(errors.New("disk full")), true)
	assert.Equal(t, "disk full", body.Error.Details)
}
