package auth

import "github.com/iliyamo/miniapp-auth/internal/model"

// LoginState is the coarse result handed to downstream handlers.
type LoginState string

const (
	LoginSuccess LoginState = "SUCCESS"
	LoginFailed  LoginState = "FAILED"
)

// Principal is the request-scoped view of the caller. It is built per
// request and never persisted.
type Principal struct {
	LoginState LoginState  `json:"loginState"`
	User       *model.User `json:"user,omitempty"`
	UserID     string      `json:"userId"`
	TenantID   uint64      `json:"tenantId"`
	Role       model.Role  `json:"role"`
	Token      string      `json:"-"`
	NewUser    bool        `json:"-"`
}

// Anonymous is the principal for callers without a valid session.
func Anonymous() Principal { return Principal{LoginState: LoginFailed} }

// Authenticated reports whether the principal carries a live session.
func (p Principal) Authenticated() bool { return p.LoginState == LoginSuccess && p.UserID != "" }

// principalFor builds a successful principal. role is the caller's role in
// tenantID, which differs from u.Role when a public identity visits a
// tenant other than the one it was created through.
func principalFor(u model.User, tenantID uint64, role model.Role, token string) Principal {
	return Principal{
		LoginState: LoginSuccess,
		User:       &u,
		UserID:     u.ID,
		TenantID:   tenantID,
		Role:       role,
		Token:      token,
	}
}
