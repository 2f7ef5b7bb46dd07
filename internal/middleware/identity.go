package middleware

// identity.go holds the principal plumbing shared by the auth, role and
// rate limit middleware. The principal set by Authorize, Authenticate or
// Identify lives in the echo context under PrincipalKey.

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/miniapp-auth/internal/auth"
)

// PrincipalKey is the echo context key holding the auth.Principal.
const PrincipalKey = "principal"

// Authenticator is the request-facing surface of auth.Gateway.
type Authenticator interface {
    Authorize(ctx context.Context, h http.Header) (auth.Principal, error)
    Authenticate(ctx context.Context, h http.Header) (auth.Principal, error)
    Identify(ctx context.Context, h http.Header) (auth.Principal, error)
}

// CurrentPrincipal returns the principal stored on the context, or an
// anonymous one when no auth middleware ran.
func CurrentPrincipal(c echo.Context) auth.Principal {
    if p, ok := c.Get(PrincipalKey).(auth.Principal); ok {
        return p
    }
    return auth.Anonymous()
}

// userID returns the authenticated user id, or "guest".
func userID(c echo.Context) string {
    p := CurrentPrincipal(c)
    if !p.Authenticated() {
        return "guest"
    }
    return p.UserID
}
