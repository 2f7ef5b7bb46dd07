package router // package router defines how HTTP routes are registered for the API

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/miniapp-auth/internal/handler"
    "github.com/iliyamo/miniapp-auth/internal/middleware"
    "github.com/iliyamo/miniapp-auth/internal/model"
)

// RegisterRoutes registers routes that do not require authentication: the
// health check used by load balancers and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler, metrics http.Handler) {
    e.GET("/healthz", h.Health)
    if metrics != nil {
        e.GET("/metrics", echo.WrapHandler(metrics))
    }
}

// RegisterAuth registers the session routes.  The login route is rate
// limited before the code exchange so a throttled request never spends a
// one-time code.  Everything else under /v1 either requires a session or
// attaches one when present.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gw middleware.Authenticator, limiter echo.MiddlewareFunc) {
    g := e.Group("/v1/auth")
    loginMW := []echo.MiddlewareFunc{middleware.Authorize(gw)}
    if limiter != nil {
        loginMW = append([]echo.MiddlewareFunc{limiter}, loginMW...)
    }
    g.POST("/login", a.Login, loginMW...)

    // Anonymous callers are allowed; a presented but stale token is not.
    e.GET("/v1/session", a.Session, middleware.Identify(gw))

    authed := e.Group("/v1")
    authed.Use(middleware.Authenticate(gw))
    authed.GET("/me", a.Me)

    owner := authed.Group("/owner")
    owner.Use(middleware.RequireRole(model.RoleOwner))
    owner.GET("/tenant", a.OwnerTenant)
}
