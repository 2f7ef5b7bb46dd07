package model

import "time"

// Role distinguishes the tenant owner from ordinary members.  A freshly
// inserted row stays RolePending until ownership has been resolved.
type Role uint8

const (
    RolePending Role = 0
    RoleOwner   Role = 1
    RoleMember  Role = 2
)

// String returns the lowercase role name.
func (r Role) String() string {
    switch r {
    case RoleOwner:
        return "owner"
    case RoleMember:
        return "member"
    default:
        return "pending"
    }
}

// MarshalText lets roles travel as names in JSON payloads.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Profile holds optional, provider-supplied details about a user.
type Profile struct {
    Nickname  string `json:"nickName,omitempty"`
    AvatarURL string `json:"avatarUrl,omitempty"`
    UnionID   string `json:"unionId,omitempty"`
}

// User represents an identity record as stored in the `users` table.
// Token and SessionSecret never leave the service, hence the "-" tags.
//
// Fields:
//  ID            – generated primary key (uuid).
//  OpenID        – stable external user id from the identity provider.
//  TenantID      – tenant the row was created through.
//  Role          – owner, member or pending.
//  Token         – current session token (skey); reissued on every login.
//  SessionSecret – provider session secret the token was derived from.
//  Profile       – optional provider profile.
//  CreatedAt     – timestamp of creation.
//  LastVisitAt   – last login or successful validation.
type User struct {
    ID            string    `json:"id"`          // users.id
    OpenID        string    `json:"openId"`      // users.open_id
    TenantID      uint64    `json:"tenantId"`    // users.tenant_id
    Role          Role      `json:"role"`        // users.role
    Token         string    `json:"-"`           // users.skey
    SessionSecret string    `json:"-"`           // users.session_key
    Profile       Profile   `json:"profile"`     // users.profile (JSON)
    CreatedAt     time.Time `json:"createdAt"`   // users.created_at
    LastVisitAt   time.Time `json:"lastVisitAt"` // users.last_visit_at
}
