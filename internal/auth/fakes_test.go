package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/miniapp-auth/internal/model"
	"github.com/iliyamo/miniapp-auth/internal/repository"
)

// In-memory stores used across the auth tests. Each one counts its calls so
// tests can assert that nothing was touched.

type memTenants struct {
	mu    sync.Mutex
	byID  map[uint64]*model.Tenant
	calls int
	err   error
}

func newMemTenants(ts ...model.Tenant) *memTenants {
	m := &memTenants{byID: map[uint64]*model.Tenant{}}
	for i := range ts {
		t := ts[i]
		m.byID[t.ID] = &t
	}
	return m
}

func (m *memTenants) FindByAppID(_ context.Context, appID string) (model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return model.Tenant{}, m.err
	}
	for _, t := range m.byID {
		if t.AppID == appID {
			return *t, nil
		}
	}
	return model.Tenant{}, repository.ErrNotFound
}

func (m *memTenants) FindByID(_ context.Context, id uint64) (model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	t, ok := m.byID[id]
	if !ok {
		return model.Tenant{}, repository.ErrNotFound
	}
	return *t, nil
}

func (m *memTenants) CASOwner(_ context.Context, tenantID uint64, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	t, ok := m.byID[tenantID]
	if !ok || t.OwnerID != "" {
		return false, nil
	}
	t.OwnerID = userID
	return true, nil
}

func (m *memTenants) owner(id uint64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].OwnerID
}

type memUsers struct {
	mu        sync.Mutex
	rows      map[string]*model.User
	seq       int
	calls     int
	upsertErr error
	assignErr error
}

func newMemUsers() *memUsers { return &memUsers{rows: map[string]*model.User{}} }

func identityKey(openID, scope string) string { return openID + "|" + scope }

func (m *memUsers) Upsert(_ context.Context, p repository.UpsertParams) (model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.upsertErr != nil {
		return model.User{}, false, m.upsertErr
	}
	at := p.At.UTC().Truncate(time.Second)
	key := identityKey(p.OpenID, p.Tenant.UserScope())
	if u, ok := m.rows[key]; ok {
		u.Token = p.Token
		u.SessionSecret = p.SessionSecret
		u.Profile = p.Profile
		u.LastVisitAt = at
		return *u, false, nil
	}
	m.seq++
	u := &model.User{
		ID:            fmt.Sprintf("user-%d", m.seq),
		OpenID:        p.OpenID,
		TenantID:      p.Tenant.ID,
		Role:          model.RolePending,
		Token:         p.Token,
		SessionSecret: p.SessionSecret,
		Profile:       p.Profile,
		CreatedAt:     at,
		LastVisitAt:   at,
	}
	m.rows[key] = u
	return *u, true, nil
}

func (m *memUsers) FindByToken(_ context.Context, token string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, u := range m.rows {
		if u.Token == token {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) AssignRole(_ context.Context, userID string, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.assignErr != nil {
		return m.assignErr
	}
	for _, u := range m.rows {
		if u.ID != userID {
			continue
		}
		if role == model.RoleOwner || u.Role == model.RolePending {
			u.Role = role
		}
	}
	return nil
}

func (m *memUsers) Touch(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, u := range m.rows {
		if u.ID == userID {
			u.LastVisitAt = at
		}
	}
	return nil
}

func (m *memUsers) byOpenID(openID string) []model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.rows {
		if u.OpenID == openID {
			out = append(out, *u)
		}
	}
	return out
}

func (m *memUsers) all() []model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.rows))
	for _, u := range m.rows {
		out = append(out, *u)
	}
	return out
}

type memCounters struct {
	mu      sync.Mutex
	counts  map[uint64]int64
	members map[string]map[uint64]bool
	incrs   int
	err     error
}

func newMemCounters() *memCounters {
	return &memCounters{counts: map[uint64]int64{}, members: map[string]map[uint64]bool{}}
}

func (m *memCounters) IncrVisit(_ context.Context, tenantID uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.incrs++
	prev := m.counts[tenantID]
	m.counts[tenantID] = prev + 1
	return prev, nil
}

func (m *memCounters) AddMembership(_ context.Context, userID string, tenantID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.members[userID] == nil {
		m.members[userID] = map[uint64]bool{}
	}
	m.members[userID][tenantID] = true
	return nil
}

func (m *memCounters) increments() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incrs
}

// fakeExchange maps codes to identities; unknown codes are rejected.
type fakeExchange struct {
	mu    sync.Mutex
	ids   map[string]Identity
	calls int
	err   error
}

func newFakeExchange() *fakeExchange { return &fakeExchange{ids: map[string]Identity{}} }

func (f *fakeExchange) add(code, openID, secret string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[code] = Identity{ExternalUserID: openID, SessionSecret: secret}
}

func (f *fakeExchange) Exchange(_ context.Context, code, _ string) (Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return Identity{}, f.err
	}
	id, ok := f.ids[code]
	if !ok {
		return Identity{}, ErrProviderRejected
	}
	delete(f.ids, code)
	return id, nil
}

func (f *fakeExchange) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
