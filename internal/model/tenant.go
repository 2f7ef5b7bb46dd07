package model

import "strconv"

// Mode controls how user identities are scoped inside a tenant.
type Mode string

const (
    // ModePublic shares one global identity per external user across every
    // public tenant.
    ModePublic Mode = "public"
    // ModePrivate keeps one identity per (tenant, external user) pair.
    ModePrivate Mode = "private"
)

// publicScope is the scope key used by every public tenant.
const publicScope = "public"

// Tenant represents one deployed mini-program.  It corresponds to a row in
// the `tenants` table.
//
// Fields:
//  ID      – primary key identifier.
//  AppID   – external app id assigned by the platform (appears in the referer).
//  Mode    – identity scoping policy (public or private).
//  OwnerID – id of the first visitor who claimed the tenant; empty until set.
type Tenant struct {
    ID      uint64 `json:"id"`       // tenants.id
    AppID   string `json:"appId"`    // tenants.app_id
    Mode    Mode   `json:"mode"`     // tenants.mode
    OwnerID string `json:"ownerId"`  // tenants.owner_id (nullable)
}

// HasOwner reports whether the tenant's owner has already been claimed.
func (t Tenant) HasOwner() bool { return t.OwnerID != "" }

// UserScope returns the dedup scope for user rows created through this
// tenant: the tenant id in private mode, a shared key in public mode.
func (t Tenant) UserScope() string {
    if t.Mode == ModePublic {
        return publicScope
    }
    return strconv.FormatUint(t.ID, 10)
}

// ParseMode normalizes a stored mode value.  Unknown values fall back to
// private, the narrower policy.
func ParseMode(s string) Mode {
    if Mode(s) == ModePublic {
        return ModePublic
    }
    return ModePrivate
}
