package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/iliyamo/miniapp-auth/internal/model"
)

// RequireRole returns a middleware function that enforces that the
// authenticated principal holds one of the given roles in its tenant.  It
// assumes Authenticate or Authorize already ran and stored the principal.
// Anonymous callers get 401, authenticated callers with the wrong role 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            p := CurrentPrincipal(c)
            if !p.Authenticated() {
                return c.JSON(http.StatusUnauthorized, notLoggedIn)
            }
            if !allowed[p.Role] {
                return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
