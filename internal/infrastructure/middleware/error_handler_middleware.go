package middleware

import (
	"errors"
	"net/http"

	"streamgate/internal/core/domain"
	apperrors "streamgate/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// mapDomainError translates core sentinel errors into transport errors.
// Handlers attach a ready-made *AppError instead when they have more
// context to offer.
func mapDomainError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, domain.ErrCameraNotFound):
		return apperrors.NewAppError(apperrors.ErrCodeCameraNotFound, "camera not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrSessionNotFound):
		return apperrors.NewAppError(apperrors.ErrCodeSessionNotFound, "no active session for camera", http.StatusNotFound)
	case errors.Is(err, domain.ErrSegmentNotFound):
		return apperrors.NewAppError(apperrors.ErrCodeSegmentNotFound, "segment not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrTokenInvalid):
		return apperrors.NewTokenInvalidError("token invalid or expired")
	case errors.Is(err, domain.ErrMaxProcessesExceeded):
		return apperrors.NewMaxProcessesExceededError()
	case errors.Is(err, domain.ErrNotReadyYet):
		return apperrors.NewNotReadyYetError()
	case errors.Is(err, domain.ErrProcessCrashed):
		return apperrors.NewProcessCrashedError(err)
	case errors.Is(err, domain.ErrSessionStartFailed):
		return apperrors.NewSessionStartFailedError(err)
	default:
		return nil
	}
}

// ErrorHandlerMiddleware turns errors attached by handlers into JSON
// responses with stable error codes.
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		appErr := apperrors.GetAppError(err)
		if appErr == nil {
			appErr = mapDomainError(err)
		}

		if appErr == nil {
			logger.Errorw("unhandled error",
				"error", err.Error(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   string(apperrors.ErrCodeInternal),
				"message": "Internal server error",
			})
			return
		}

		logFn := logger.Errorw
		if appErr.HTTPStatus < http.StatusInternalServerError {
			logFn = logger.Warnw
		}
		logFn("request failed",
			"code", appErr.Code,
			"message", appErr.Message,
			"status", appErr.HTTPStatus,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"cause", err.Error(),
		)

		// Players poll; tell them when it is worth coming back.
		switch appErr.HTTPStatus {
		case http.StatusServiceUnavailable, http.StatusTooManyRequests:
			c.Header("Retry-After", "1")
		}

		body := gin.H{
			"error":   string(appErr.Code),
			"message": appErr.Message,
		}
		if len(appErr.Context) > 0 {
			body["details"] = appErr.Context
		}
		c.JSON(appErr.HTTPStatus, body)
	}
}

// RecoveryMiddleware recovers from handler panics and returns a proper
// error response.
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"error", r,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   string(apperrors.ErrCodeInternal),
					"message": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
