package middleware // middleware wires the auth gateway into echo request handling

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/miniapp-auth/internal/auth"
)

// notLoggedIn is the single body returned for every authentication failure
// so clients cannot tell a missing, invalid or expired session apart.
var notLoggedIn = echo.Map{"loginState": auth.LoginFailed, "error": "not logged in"}

// Authorize runs the login flow for the request and stores the resulting
// principal on the context.  The minted session token is echoed back in the
// X-Session-Token response header.
func Authorize(a Authenticator) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            p, err := a.Authorize(c.Request().Context(), c.Request().Header)
            if err != nil {
                return reject(c, err)
            }
            c.Set(PrincipalKey, p)
            c.Response().Header().Set(auth.HeaderSessionToken, p.Token)
            return next(c)
        }
    }
}

// Authenticate requires a live session token on the request.
func Authenticate(a Authenticator) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            p, err := a.Authenticate(c.Request().Context(), c.Request().Header)
            if err != nil {
                return reject(c, err)
            }
            c.Set(PrincipalKey, p)
            return next(c)
        }
    }
}

// Identify attaches a principal when a session token is presented and lets
// anonymous requests through.  A token that is present but not valid is
// still rejected.
func Identify(a Authenticator) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            p, err := a.Identify(c.Request().Context(), c.Request().Header)
            if err != nil {
                return reject(c, err)
            }
            c.Set(PrincipalKey, p)
            return next(c)
        }
    }
}

// reject maps gateway errors to responses.  Store failures are the only
// case that is not reported as a plain authentication failure.
func reject(c echo.Context, err error) error {
    if errors.Is(err, auth.ErrStoreFailure) {
        return c.JSON(http.StatusInternalServerError, echo.Map{"loginState": auth.LoginFailed, "error": "internal error"})
    }
    return c.JSON(http.StatusUnauthorized, notLoggedIn)
}
