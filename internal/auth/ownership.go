package auth

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iliyamo/miniapp-auth/internal/model"
)

// OwnershipResolver decides whether a login makes the user the tenant's
// owner. The tenant CAS is the only arbiter; the visit counter is advisory
// bookkeeping and never gates ownership.
type OwnershipResolver struct {
	tenants  TenantStore
	users    UserStore
	counters CounterStore
	metrics  Recorder
	log      zerolog.Logger
}

func NewOwnershipResolver(t TenantStore, u UserStore, c CounterStore, m Recorder, log zerolog.Logger) *OwnershipResolver {
	if m == nil {
		m = nopRecorder{}
	}
	return &OwnershipResolver{tenants: t, users: u, counters: c, metrics: m, log: log}
}

// Resolve runs after the upsert result is known and returns the user's role
// in tenant. The visit counter moves only when wasNew is set, before the
// owner CAS. Rows still pending (new, or left behind by an interrupted
// login) go through the CAS; resolved rows are returned as they are.
func (r *OwnershipResolver) Resolve(ctx context.Context, tenant model.Tenant, user model.User, wasNew bool) (model.Role, error) {
	if wasNew {
		r.countVisit(ctx, tenant, user)
	}

	var role model.Role
	switch {
	case user.TenantID != tenant.ID:
		// A public identity created elsewhere: no ownership logic here.
		role = model.RoleMember
		if tenant.OwnerID == user.ID {
			role = model.RoleOwner
		}
	case user.Role == model.RolePending:
		var err error
		if role, err = r.claim(ctx, tenant, user); err != nil {
			return model.RolePending, err
		}
	default:
		role = user.Role
	}

	if tenant.Mode == model.ModePublic {
		r.join(ctx, tenant, user)
	}
	return role, nil
}

func (r *OwnershipResolver) claim(ctx context.Context, tenant model.Tenant, user model.User) (model.Role, error) {
	role := model.RoleMember
	won, err := r.tenants.CASOwner(ctx, tenant.ID, user.ID)
	if err != nil {
		return model.RolePending, newError(KindStoreFailure, tenant.ID, user.ID, err)
	}
	if won {
		role = model.RoleOwner
	} else {
		// Lost the CAS; the winner may still be this user from an earlier
		// login that never got to persist its role.
		current, err := r.tenants.FindByID(ctx, tenant.ID)
		if err != nil {
			return model.RolePending, newError(KindStoreFailure, tenant.ID, user.ID, err)
		}
		if current.OwnerID == user.ID {
			role = model.RoleOwner
		}
	}

	if err := r.users.AssignRole(ctx, user.ID, role); err != nil {
		return model.RolePending, newError(KindStoreFailure, tenant.ID, user.ID, err)
	}
	if won {
		r.metrics.OwnerAssigned()
		r.log.Info().Uint64("tenant_id", tenant.ID).Str("user_id", user.ID).Msg("tenant owner assigned")
	}
	return role, nil
}

func (r *OwnershipResolver) countVisit(ctx context.Context, tenant model.Tenant, user model.User) {
	prev, err := r.counters.IncrVisit(ctx, tenant.ID)
	if err != nil {
		r.metrics.CounterStoreFailed()
		r.log.Warn().Err(newError(KindCounterStoreUnavailable, tenant.ID, user.ID, err)).Msg("visit counter not incremented")
		return
	}
	if prev == 0 {
		r.log.Info().Uint64("tenant_id", tenant.ID).Str("user_id", user.ID).Msg("first visitor recorded")
	}
}

func (r *OwnershipResolver) join(ctx context.Context, tenant model.Tenant, user model.User) {
	if err := r.counters.AddMembership(ctx, user.ID, tenant.ID); err != nil {
		r.metrics.CounterStoreFailed()
		r.log.Warn().Err(newError(KindCounterStoreUnavailable, tenant.ID, user.ID, err)).Msg("membership not recorded")
	}
}
