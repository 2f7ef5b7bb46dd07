package auth

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/miniapp-auth/internal/model"
	"github.com/iliyamo/miniapp-auth/internal/repository"
)

// DefaultSessionTTL applies when no TTL is configured.
const DefaultSessionTTL = 7200 * time.Second

// Outcome is the result of checking a session token.
type Outcome uint8

const (
	OutcomeValid Outcome = iota
	OutcomeExpired
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// SessionValidator checks presented tokens against the user store. Sessions
// slide: every valid check bumps last_visit_at.
type SessionValidator struct {
	users UserStore
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionValidator(users UserStore, ttl time.Duration, now func() time.Time) *SessionValidator {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SessionValidator{users: users, ttl: ttl, now: now}
}

// Validate resolves token to its user. Expired sessions are left in place;
// the holder has to log in again to get a new token. Timestamps compare at
// second granularity, matching what the store keeps.
func (v *SessionValidator) Validate(ctx context.Context, token string) (model.User, Outcome, error) {
	u, err := v.users.FindByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, OutcomeInvalid, nil
	}
	if err != nil {
		return model.User{}, OutcomeInvalid, newError(KindStoreFailure, 0, "", err)
	}

	now := v.now().UTC().Truncate(time.Second)
	if now.Sub(u.LastVisitAt.UTC().Truncate(time.Second)) > v.ttl {
		return u, OutcomeExpired, nil
	}
	if err := v.users.Touch(ctx, u.ID, now); err != nil {
		return model.User{}, OutcomeInvalid, newError(KindStoreFailure, u.TenantID, u.ID, err)
	}
	u.LastVisitAt = now
	return u, OutcomeValid, nil
}
