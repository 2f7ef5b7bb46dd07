package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Identity is what the provider returns for a one-time login code.
type Identity struct {
	ExternalUserID string
	SessionSecret  string
	UnionID        string
}

// IdentityExchange trades a one-time code for a provider identity. Codes are
// single-use, so implementations must not retry.
type IdentityExchange interface {
	Exchange(ctx context.Context, code, appID string) (Identity, error)
}

// ComponentAccessTokenKey is where the platform access token is cached in
// Redis by the component ticket refresher.
const ComponentAccessTokenKey = "component_access_token"

const jscode2sessionPath = "/sns/component/jscode2session"

// ComponentExchange calls the platform's third-party component
// jscode2session endpoint on behalf of a tenant mini-program.
type ComponentExchange struct {
	client         *http.Client
	rdb            redis.Cmdable
	baseURL        string
	componentAppID string
}

// NewComponentExchange builds an exchange client. timeout bounds the whole
// provider round trip.
func NewComponentExchange(rdb *redis.Client, baseURL, componentAppID string, timeout time.Duration) *ComponentExchange {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	x := &ComponentExchange{
		client:         &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(baseURL, "/"),
		componentAppID: componentAppID,
	}
	if rdb != nil {
		x.rdb = rdb
	}
	return x
}

type jscode2sessionResp struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	UnionID    string `json:"unionid"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

// Exchange implements IdentityExchange.
func (x *ComponentExchange) Exchange(ctx context.Context, code, appID string) (Identity, error) {
	accessToken, err := x.accessToken(ctx)
	if err != nil {
		return Identity{}, newError(KindProviderUnavailable, 0, "", err)
	}

	q := url.Values{}
	q.Set("appid", appID)
	q.Set("js_code", code)
	q.Set("grant_type", "authorization_code")
	q.Set("component_appid", x.componentAppID)
	q.Set("component_access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.baseURL+jscode2sessionPath+"?"+q.Encode(), nil)
	if err != nil {
		return Identity{}, newError(KindProviderUnavailable, 0, "", err)
	}
	resp, err := x.client.Do(req)
	if err != nil {
		return Identity{}, newError(KindProviderUnavailable, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Identity{}, newError(KindProviderUnavailable, 0, "", fmt.Errorf("jscode2session: http %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Identity{}, newError(KindProviderUnavailable, 0, "", err)
	}
	var out jscode2sessionResp
	if err := json.Unmarshal(body, &out); err != nil {
		return Identity{}, newError(KindProviderRejected, 0, "", fmt.Errorf("jscode2session: decode: %w", err))
	}
	if out.ErrCode != 0 {
		return Identity{}, newError(KindProviderRejected, 0, "", fmt.Errorf("jscode2session: errcode %d: %s", out.ErrCode, out.ErrMsg))
	}
	if out.OpenID == "" || out.SessionKey == "" {
		return Identity{}, newError(KindProviderRejected, 0, "", errors.New("jscode2session: missing openid or session_key"))
	}
	return Identity{ExternalUserID: out.OpenID, SessionSecret: out.SessionKey, UnionID: out.UnionID}, nil
}

func (x *ComponentExchange) accessToken(ctx context.Context) (string, error) {
	if x.rdb == nil {
		return "", errors.New("no redis client for component access token")
	}
	tok, err := x.rdb.Get(ctx, ComponentAccessTokenKey).Result()
	if errors.Is(err, redis.Nil) || (err == nil && tok == "") {
		return "", errors.New("component access token not cached")
	}
	if err != nil {
		return "", err
	}
	return tok, nil
}
