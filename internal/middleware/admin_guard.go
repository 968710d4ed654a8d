package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixparts/fixparts/internal/domain"
)

// AdminGuard ensures only admin users reach the admin surface
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, ok := c.Get("role").(string)
		if !ok || role != string(domain.RoleAdmin) {
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "admin access only",
			})
		}
		return next(c)
	}
}
