package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"tasksync/internal/logger"
	"tasksync/internal/store"
)

// storeError maps entity-store failures to HTTP responses. Anything
// unexpected surfaces as a generic 500; there is no retry anywhere.
func storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, store.ErrProtected):
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Cannot delete inbox"})
	default:
		logger.Error("store error",
			logger.F("path", c.Request().URL.Path),
			logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
