package handlers

import (
	"errors"
	"net/http"

	"pv_informant/internal/models"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP codes. unknownWorker is the code for
// ErrUnknownWorker, which differs between queries and reports.
func statusFor(err error, unknownWorker int) int {
	switch {
	case errors.Is(err, models.ErrInvalidRange), errors.Is(err, models.ErrInvalidAddress), errors.Is(err, models.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnknownWorker):
		return unknownWorker
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Centralized error logging and response. Client errors are logged at info,
// everything else at error. 5xx responses hide the cause.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		if httpCode >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	msg := err.Error()
	switch httpCode {
	case http.StatusServiceUnavailable:
		msg = "storage unavailable"
	case http.StatusInternalServerError:
		msg = "internal server error"
	}
	c.JSON(httpCode, gin.H{"error": msg})
}
