package httpapi

import (
	"errors"
	"net/http"

	"bookcomments/internal/service"
	"bookcomments/pkg/logger"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with the status matching err. Details of
// unexpected errors are logged, not returned.
func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed", "error", err)
		msg = service.ErrInternalError.Error()
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}
