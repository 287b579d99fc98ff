package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/pkg/logger"
	"go.uber.org/zap"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error sends an error response. Anything that is not an AppError becomes a 500
// and its cause is logged, never returned.
func Error(c *gin.Context, err error) {
	var appErr *domainerrors.AppError
	if !errors.As(err, &appErr) {
		appErr = domainerrors.InternalError(err)
	}

	if appErr.Status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("code", appErr.Code),
			zap.Error(appErr.Err),
		)
	}

	body := gin.H{
		"success": false,
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	for k, v := range appErr.Details {
		if _, reserved := body[k]; !reserved {
			body[k] = v
		}
	}
	c.JSON(appErr.Status, body)
}
