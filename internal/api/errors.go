// Package api maps the engine's typed errors onto HTTP responses. The
// engine itself never formats user-facing text.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixparts/fixparts/internal/domain"
)

// Error writes the JSON error response for a typed engine error.
func Error(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrForbiddenTransition):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicateProposal),
		errors.Is(err, domain.ErrDuplicateSettlement):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrOrderNotOpen),
		errors.Is(err, domain.ErrInvalidEscrowState),
		errors.Is(err, domain.ErrInsufficientFunds):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// Actor extracts the authenticated actor set by the JWT middleware.
func Actor(c echo.Context) (domain.Actor, bool) {
	id, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	if id == "" || role == "" {
		return domain.Actor{}, false
	}
	return domain.Actor{ID: id, Role: domain.Role(role)}, true
}
