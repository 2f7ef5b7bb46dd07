// Package auth issues and validates mini-program session tokens and resolves
// tenant ownership on first visit.
package auth

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/miniapp-auth/internal/model"
	"github.com/iliyamo/miniapp-auth/internal/repository"
)

// Request headers consumed by the gateway.
const (
	HeaderLoginCode    = "X-Login-Code"
	HeaderReferer      = "Referer"
	HeaderSessionToken = "X-Session-Token"
)

var refererPattern = regexp.MustCompile(`servicewechat\.com/([A-Za-z0-9]+)`)

// AppIDFromReferer extracts the tenant app id the platform embeds in the
// referer of every mini-program request.
func AppIDFromReferer(referer string) (string, bool) {
	m := refererPattern.FindStringSubmatch(referer)
	if len(m) != 2 {
		return "", false
	}
	return m[1], true
}

// Deps wires a Gateway. Exchange, Minter and the three stores are required.
type Deps struct {
	Tenants      TenantStore
	Users        UserStore
	Counters     CounterStore
	Exchange     IdentityExchange
	Minter       *Minter
	SessionTTL   time.Duration
	StoreTimeout time.Duration
	Metrics      Recorder
	Logger       zerolog.Logger
	Now          func() time.Time
}

// Gateway drives login and session checks for incoming requests.
type Gateway struct {
	tenants      TenantStore
	users        UserStore
	exchange     IdentityExchange
	minter       *Minter
	resolver     *OwnershipResolver
	validator    *SessionValidator
	storeTimeout time.Duration
	metrics      Recorder
	log          zerolog.Logger
	now          func() time.Time
}

func NewGateway(d Deps) *Gateway {
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Minter == nil {
		d.Minter = &Minter{digest: DigestSHA1}
	}
	if d.StoreTimeout <= 0 {
		d.StoreTimeout = 5 * time.Second
	}
	return &Gateway{
		tenants:      d.Tenants,
		users:        d.Users,
		exchange:     d.Exchange,
		minter:       d.Minter,
		resolver:     NewOwnershipResolver(d.Tenants, d.Users, d.Counters, d.Metrics, d.Logger),
		validator:    NewSessionValidator(d.Users, d.SessionTTL, d.Now),
		storeTimeout: d.StoreTimeout,
		metrics:      d.Metrics,
		log:          d.Logger,
		now:          d.Now,
	}
}

// Authorize logs a user in with a one-time code. The returned principal
// carries the freshly minted token for the caller to hand back to the
// client. No I/O happens when the required headers are missing.
func (g *Gateway) Authorize(ctx context.Context, h http.Header) (Principal, error) {
	p, err := g.authorize(ctx, h)
	if err != nil {
		g.metrics.LoginFailed(KindOf(err).String())
		g.log.Warn().Err(err).Msg("login failed")
		return Anonymous(), err
	}
	g.metrics.LoginSucceeded(p.Role.String(), p.NewUser)
	return p, nil
}

func (g *Gateway) authorize(ctx context.Context, h http.Header) (Principal, error) {
	code := h.Get(HeaderLoginCode)
	appID, ok := AppIDFromReferer(h.Get(HeaderReferer))
	if code == "" || !ok {
		return Principal{}, ErrMissingHeaders
	}

	tenant, err := g.findTenant(ctx, appID)
	if err != nil {
		return Principal{}, err
	}

	id, err := g.exchange.Exchange(ctx, code, appID)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			return Principal{}, newError(ae.Kind, tenant.ID, "", ae.Err)
		}
		return Principal{}, newError(KindProviderUnavailable, tenant.ID, "", err)
	}

	token, err := g.minter.Mint([]byte(id.SessionSecret))
	if err != nil {
		return Principal{}, newError(KindInvalidSecret, tenant.ID, "", nil)
	}

	sctx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	user, wasNew, err := g.users.Upsert(sctx, repository.UpsertParams{
		OpenID:        id.ExternalUserID,
		Tenant:        tenant,
		Token:         token,
		SessionSecret: id.SessionSecret,
		Profile:       model.Profile{UnionID: id.UnionID},
		At:            g.now(),
	})
	if err != nil {
		return Principal{}, newError(KindStoreFailure, tenant.ID, "", err)
	}

	role, err := g.resolver.Resolve(sctx, tenant, user, wasNew)
	if err != nil {
		return Principal{}, err
	}
	if user.TenantID == tenant.ID {
		user.Role = role
	}

	p := principalFor(user, tenant.ID, role, token)
	p.NewUser = wasNew
	g.log.Info().Uint64("tenant_id", tenant.ID).Str("user_id", user.ID).
		Str("role", role.String()).Bool("new_user", wasNew).Msg("login succeeded")
	return p, nil
}

func (g *Gateway) findTenant(ctx context.Context, appID string) (model.Tenant, error) {
	sctx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	tenant, err := g.tenants.FindByAppID(sctx, appID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Tenant{}, newError(KindTenantNotFound, 0, "", errors.New("app id "+appID))
	}
	if err != nil {
		return model.Tenant{}, newError(KindStoreFailure, 0, "", err)
	}
	return tenant, nil
}

// Authenticate requires a session token and resolves it. Invalid and
// expired tokens produce the same ErrNotAuthenticated; only logs and
// metrics tell them apart.
func (g *Gateway) Authenticate(ctx context.Context, h http.Header) (Principal, error) {
	token := h.Get(HeaderSessionToken)
	if token == "" {
		g.metrics.SessionChecked("missing")
		return Anonymous(), ErrMissingHeaders
	}
	return g.check(ctx, token)
}

// Identify is Authenticate for routes that tolerate anonymous callers: a
// missing token yields Anonymous and no error, while a presented token that
// does not check out still fails.
func (g *Gateway) Identify(ctx context.Context, h http.Header) (Principal, error) {
	token := h.Get(HeaderSessionToken)
	if token == "" {
		return Anonymous(), nil
	}
	return g.check(ctx, token)
}

func (g *Gateway) check(ctx context.Context, token string) (Principal, error) {
	sctx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	user, outcome, err := g.validator.Validate(sctx, token)
	if err != nil {
		g.metrics.SessionChecked("error")
		g.log.Error().Err(err).Msg("session check failed")
		return Anonymous(), err
	}
	g.metrics.SessionChecked(outcome.String())
	if outcome != OutcomeValid {
		g.log.Debug().Str("outcome", outcome.String()).Str("user_id", user.ID).Msg("session rejected")
		return Anonymous(), ErrNotAuthenticated
	}
	return principalFor(user, user.TenantID, user.Role, token), nil
}
