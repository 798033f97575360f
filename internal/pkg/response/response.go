package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"intakeflow/internal/pkg/apperr"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError writes the error envelope for err. Unclassified errors become a
// generic 500; their text is only exposed when exposeDetail is set.
func FromError(c *gin.Context, err error, exposeDetail bool) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = classify(err)
	}
	if ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
		if exposeDetail && ae.Err != nil {
			ErrorWithDetails(c, ae.Status, ae.Code, ae.Error(), ae.Err.Error())
			return
		}
	}
	Error(c, ae.Status, ae.Code, ae.Error())
}

func classify(err error) *apperr.Error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("resource not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("resource already exists", err)
	default:
		return apperr.Internal(err)
	}
}
