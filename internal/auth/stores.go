package auth

import (
	"context"
	"time"

	"github.com/iliyamo/miniapp-auth/internal/model"
	"github.com/iliyamo/miniapp-auth/internal/repository"
)

// TenantStore is the subset of tenant persistence the gateway relies on.
// CASOwner must succeed only when no owner is recorded yet.
type TenantStore interface {
	FindByAppID(ctx context.Context, appID string) (model.Tenant, error)
	FindByID(ctx context.Context, id uint64) (model.Tenant, error)
	CASOwner(ctx context.Context, tenantID uint64, userID string) (bool, error)
}

// UserStore persists user identities. Lookups return repository.ErrNotFound
// when nothing matches.
type UserStore interface {
	Upsert(ctx context.Context, p repository.UpsertParams) (model.User, bool, error)
	FindByToken(ctx context.Context, token string) (model.User, error)
	AssignRole(ctx context.Context, userID string, role model.Role) error
	Touch(ctx context.Context, userID string, at time.Time) error
}

// CounterStore holds the advisory visit counters and membership sets.
type CounterStore interface {
	IncrVisit(ctx context.Context, tenantID uint64) (int64, error)
	AddMembership(ctx context.Context, userID string, tenantID uint64) error
}

// Recorder receives auth outcomes for metrics.
type Recorder interface {
	LoginSucceeded(role string, newUser bool)
	LoginFailed(reason string)
	SessionChecked(outcome string)
	OwnerAssigned()
	CounterStoreFailed()
}

type nopRecorder struct{}

func (nopRecorder) LoginSucceeded(string, bool) {}
func (nopRecorder) LoginFailed(string)          {}
func (nopRecorder) SessionChecked(string)       {}
func (nopRecorder) OwnerAssigned()              {}
func (nopRecorder) CounterStoreFailed()         {}
