package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miniapp-auth/internal/auth"
	"github.com/iliyamo/miniapp-auth/internal/model"
)

type fakeAuth struct {
	p   auth.Principal
	err error
}

func (f fakeAuth) Authorize(context.Context, http.Header) (auth.Principal, error)    { return f.p, f.err }
func (f fakeAuth) Authenticate(context.Context, http.Header) (auth.Principal, error) { return f.p, f.err }
func (f fakeAuth) Identify(context.Context, http.Header) (auth.Principal, error)     { return f.p, f.err }

func owner() auth.Principal {
	return auth.Principal{LoginState: auth.LoginSuccess, UserID: "u-1", TenantID: 3, Role: model.RoleOwner, Token: "tok"}
}

func echoPrincipal(c echo.Context) error {
	return c.JSON(http.StatusOK, CurrentPrincipal(c))
}

func serve(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestAuthorize_SetsPrincipalAndTokenHeader(t *testing.T) {
	e := echo.New()
	e.POST("/login", echoPrincipal, Authorize(fakeAuth{p: owner()}))

	rec := serve(e, http.MethodPost, "/login")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", rec.Header().Get(auth.HeaderSessionToken))
	assert.Contains(t, rec.Body.String(), `"userId":"u-1"`)
}

func TestAuthFailuresAreUniform(t *testing.T) {
	errs := []error{
		auth.ErrMissingHeaders,
		auth.ErrTenantNotFound,
		auth.ErrProviderRejected,
		auth.ErrProviderUnavailable,
		auth.ErrNotAuthenticated,
	}
	var bodies []string
	for _, err := range errs {
		e := echo.New()
		e.POST("/login", echoPrincipal, Authorize(fakeAuth{p: auth.Anonymous(), err: err}))
		rec := serve(e, http.MethodPost, "/login")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, err.Error())
		assert.Empty(t, rec.Header().Get(auth.HeaderSessionToken))
		bodies = append(bodies, rec.Body.String())
	}
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}
}

func TestStoreFailureIs500(t *testing.T) {
	e := echo.New()
	e.GET("/me", echoPrincipal, Authenticate(fakeAuth{p: auth.Anonymous(), err: auth.ErrStoreFailure}))

	rec := serve(e, http.MethodGet, "/me")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
}

func TestIdentify_AllowsAnonymous(t *testing.T) {
	e := echo.New()
	e.GET("/session", echoPrincipal, Identify(fakeAuth{p: auth.Anonymous()}))

	rec := serve(e, http.MethodGet, "/session")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"loginState":"FAILED"`)
}

func TestRequireRole(t *testing.T) {
	member := owner()
	member.Role = model.RoleMember

	cases := []struct {
		name string
		p    auth.Principal
		want int
	}{
		{"owner", owner(), http.StatusOK},
		{"member", member, http.StatusForbidden},
		{"anonymous", auth.Anonymous(), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/owner", echoPrincipal, Identify(fakeAuth{p: tc.p}), RequireRole(model.RoleOwner))
			assert.Equal(t, tc.want, serve(e, http.MethodGet, "/owner").Code)
		})
	}
}

func TestCurrentPrincipal_DefaultsToAnonymous(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.False(t, CurrentPrincipal(c).Authenticated())
	assert.Equal(t, "guest", userID(c))
}
