package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miniapp-auth/internal/model"
)

type countingRecorder struct {
	nopRecorder
	owners, counterFailures int
}

func (r *countingRecorder) OwnerAssigned()      { r.owners++ }
func (r *countingRecorder) CounterStoreFailed() { r.counterFailures++ }

func TestResolve_ExistingMemberIsLeftAlone(t *testing.T) {
	tenants := newMemTenants(model.Tenant{ID: 1, Mode: model.ModePrivate, OwnerID: "someone"})
	counters := newMemCounters()
	users := newMemUsers()
	r := NewOwnershipResolver(tenants, users, counters, nil, zerolog.Nop())

	role, err := r.Resolve(context.Background(), model.Tenant{ID: 1, Mode: model.ModePrivate, OwnerID: "someone"},
		model.User{ID: "u-2", TenantID: 1, Role: model.RoleMember}, false)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, role)
	assert.Zero(t, counters.increments())
	assert.Zero(t, tenants.calls)
	assert.Zero(t, users.calls)
}

func TestResolve_CounterFailureIsNotFatal(t *testing.T) {
	tenant := model.Tenant{ID: 1, Mode: model.ModePublic}
	tenants := newMemTenants(tenant)
	counters := newMemCounters()
	counters.err = errors.New("redis down")
	rec := &countingRecorder{}
	r := NewOwnershipResolver(tenants, newMemUsers(), counters, rec, zerolog.Nop())

	role, err := r.Resolve(context.Background(), tenant, model.User{ID: "u-1", TenantID: 1}, true)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, role)
	assert.Equal(t, "u-1", tenants.owner(1))
	assert.Equal(t, 1, rec.owners)
	// Both the counter increment and the membership add failed.
	assert.Equal(t, 2, rec.counterFailures)
}

func TestResolve_CASErrorIsStoreFailure(t *testing.T) {
	tenant := model.Tenant{ID: 9, Mode: model.ModePrivate}
	r := NewOwnershipResolver(newMemTenants(), newMemUsers(), newMemCounters(), nil, zerolog.Nop())

	// Tenant 9 is unknown to the store, so the CAS loses and the follow-up
	// lookup fails.
	_, err := r.Resolve(context.Background(), tenant, model.User{ID: "u-1", TenantID: 9}, true)
	require.ErrorIs(t, err, ErrStoreFailure)
	assert.Equal(t, uint64(9), err.(*Error).TenantID)
	assert.Equal(t, "u-1", err.(*Error).UserID)
}

func TestResolve_ForeignPublicIdentityNeverClaims(t *testing.T) {
	tenant := model.Tenant{ID: 2, Mode: model.ModePublic}
	tenants := newMemTenants(tenant)
	counters := newMemCounters()
	r := NewOwnershipResolver(tenants, newMemUsers(), counters, nil, zerolog.Nop())

	role, err := r.Resolve(context.Background(), tenant, model.User{ID: "u-1", TenantID: 1, Role: model.RoleOwner}, false)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, role)
	assert.Empty(t, tenants.owner(2))
	assert.True(t, counters.members["u-1"][2])
}
