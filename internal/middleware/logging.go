package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
)

// RequestLogger emits one zerolog event per request.  Session tokens and
// login codes are never logged.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            req := c.Request()
            ev := log.Info()
            if status := c.Response().Status; status >= 500 {
                ev = log.Error().Err(err)
            }
            ev.Str("method", req.Method).
                Str("path", c.Path()).
                Int("status", c.Response().Status).
                Dur("latency", time.Since(start)).
                Str("ip", c.RealIP()).
                Str("user_id", userID(c)).
                Msg("request")
            return nil
        }
    }
}
