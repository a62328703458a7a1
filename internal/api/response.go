// internal/api/response.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/greenlit-app/greenlit/internal/errors"
	"github.com/greenlit-app/greenlit/internal/utils"
)

// Success responses are {success: true, <payload fields>, message}; failures
// are {error, details, type} with the status drawn from the error taxonomy.

func respondSuccess(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// statusFor maps the error taxonomy onto HTTP statuses. Anything that is not
// an AppError is treated as an upstream failure.
func statusFor(errType apperrors.ErrorType) int {
	switch errType {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeMissingPrerequisite:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeGone:
		return http.StatusGone
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewUpstreamError("internal error", err)
	}

	status := statusFor(appErr.Type)
	if status >= http.StatusInternalServerError {
		utils.GetLogger().Error("request failed", map[string]interface{}{
			"path": c.FullPath(), "type": string(appErr.Type), "error": appErr.Error(),
		})
	}

	body := gin.H{"error": appErr.Message, "type": string(appErr.Type)}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	} else if appErr.Err != nil {
		body["details"] = appErr.Err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}
