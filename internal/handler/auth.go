package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/miniapp-auth/internal/auth"
    "github.com/iliyamo/miniapp-auth/internal/middleware"
    "github.com/iliyamo/miniapp-auth/internal/model"
    "github.com/iliyamo/miniapp-auth/internal/queue"
    "github.com/iliyamo/miniapp-auth/internal/repository"
)

// TenantReader loads tenant records for the owner view.
type TenantReader interface {
    FindByID(ctx context.Context, id uint64) (model.Tenant, error)
}

// CounterReader exposes the advisory visit counter and membership sets.
type CounterReader interface {
    VisitCount(ctx context.Context, tenantID uint64) (int64, error)
    Memberships(ctx context.Context, userID string) ([]uint64, error)
}

// LoginPublisher emits login events.  A nil publisher disables events.
type LoginPublisher interface {
    PublishLogin(ctx context.Context, ev queue.LoginEvent) error
}

// AuthHandler serves the session endpoints.  Authentication itself happens
// in middleware; the handlers only render the principal it produced.
type AuthHandler struct {
    Tenants  TenantReader
    Counters CounterReader
    Events   LoginPublisher
    Log      zerolog.Logger
    Now      func() time.Time
}

func NewAuthHandler(t TenantReader, c CounterReader, ev LoginPublisher, log zerolog.Logger) *AuthHandler {
    return &AuthHandler{Tenants: t, Counters: c, Events: ev, Log: log, Now: time.Now}
}

// sessionResp is the client-facing shape of a principal.  The session
// token travels in the X-Session-Token header on login, never in the body.
type sessionResp struct {
    LoginState auth.LoginState `json:"loginState"`
    UserID     string          `json:"userId,omitempty"`
    TenantID   uint64          `json:"tenantId,omitempty"`
    Role       string          `json:"role,omitempty"`
    NewUser    bool            `json:"newUser,omitempty"`
    Profile    *model.Profile  `json:"profile,omitempty"`
}

func toSessionResp(p auth.Principal) sessionResp {
    if !p.Authenticated() {
        return sessionResp{LoginState: auth.LoginFailed}
    }
    r := sessionResp{
        LoginState: p.LoginState,
        UserID:     p.UserID,
        TenantID:   p.TenantID,
        Role:       p.Role.String(),
        NewUser:    p.NewUser,
    }
    if p.User != nil {
        prof := p.User.Profile
        r.Profile = &prof
    }
    return r
}

// Login handles POST /v1/auth/login after the Authorize middleware has
// exchanged the code.  A login event is published best effort.
func (h *AuthHandler) Login(c echo.Context) error {
    p := middleware.CurrentPrincipal(c)
    if h.Events != nil {
        ev := queue.LoginEvent{
            UserID:     p.UserID,
            TenantID:   p.TenantID,
            AppID:      c.Request().Header.Get(auth.HeaderReferer),
            Role:       p.Role.String(),
            NewUser:    p.NewUser,
            LoggedInAt: h.Now().UTC().Format(time.RFC3339),
        }
        if appID, ok := auth.AppIDFromReferer(ev.AppID); ok {
            ev.AppID = appID
        }
        if err := h.Events.PublishLogin(c.Request().Context(), ev); err != nil {
            h.Log.Warn().Err(err).Str("user_id", p.UserID).Msg("publish login event failed")
        }
    }
    return c.JSON(http.StatusOK, toSessionResp(p))
}

// Me handles GET /v1/me.
func (h *AuthHandler) Me(c echo.Context) error {
    return c.JSON(http.StatusOK, toSessionResp(middleware.CurrentPrincipal(c)))
}

// Session handles GET /v1/session.  Anonymous callers get a FAILED login
// state with 200 so clients can poll it.
func (h *AuthHandler) Session(c echo.Context) error {
    return c.JSON(http.StatusOK, toSessionResp(middleware.CurrentPrincipal(c)))
}

type ownerTenantResp struct {
    Tenant      model.Tenant `json:"tenant"`
    VisitCount  *int64       `json:"visitCount"`
    Memberships []uint64     `json:"memberships"`
}

// OwnerTenant handles GET /v1/owner/tenant.  The counter figures are
// advisory; when the counter store is down they are omitted rather than
// failing the request.
func (h *AuthHandler) OwnerTenant(c echo.Context) error {
    p := middleware.CurrentPrincipal(c)
    ctx := c.Request().Context()

    t, err := h.Tenants.FindByID(ctx, p.TenantID)
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
    }
    if err != nil {
        h.Log.Error().Err(err).Uint64("tenant_id", p.TenantID).Msg("load tenant failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }

    resp := ownerTenantResp{Tenant: t, Memberships: []uint64{}}
    if n, err := h.Counters.VisitCount(ctx, t.ID); err == nil {
        resp.VisitCount = &n
    } else {
        h.Log.Warn().Err(err).Uint64("tenant_id", t.ID).Msg("visit count unavailable")
    }
    if ids, err := h.Counters.Memberships(ctx, p.UserID); err == nil {
        resp.Memberships = ids
    } else {
        h.Log.Warn().Err(err).Str("user_id", p.UserID).Msg("memberships unavailable")
    }
    return c.JSON(http.StatusOK, resp)
}
