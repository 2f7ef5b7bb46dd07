package handler

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the service and its stores are reachable.
// Redis is optional: a nil client or a failed ping is reported but does not
// make the service unhealthy, since logins fail at the provider step and
// counters degrade without it.
type HealthHandler struct {
    DB    *sql.DB
    Redis *redis.Client
}

// Health is used by load balancers and monitoring systems.  It returns 200
// when MySQL answers a ping and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()

    body := echo.Map{"status": "ok", "db": "ok", "redis": "ok"}
    status := http.StatusOK
    if h.DB == nil || h.DB.PingContext(ctx) != nil {
        body["status"], body["db"] = "degraded", "down"
        status = http.StatusServiceUnavailable
    }
    if h.Redis == nil {
        body["redis"] = "disabled"
    } else if err := h.Redis.Ping(ctx).Err(); err != nil {
        body["redis"] = "down"
    }
    return c.JSON(status, body)
}
