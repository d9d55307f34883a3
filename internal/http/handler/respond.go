package handler

import (
	"log/slog"
	"net/http"

	"cordfriend.app/server/internal/http/dto"
	"github.com/gin-gonic/gin"
)

// respondError writes err through the service error mapping. Internal errors
// are logged here since their detail never reaches the client.
func respondError(c *gin.Context, op string, err error) {
	status, body := dto.FromServiceError(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), op+" failed", "error", err)
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func respondBindError(c *gin.Context, err error) {
	slog.WarnContext(c.Request.Context(), "invalid request body", "error", err)
	c.JSON(http.StatusBadRequest, dto.FromBindError(err))
}
