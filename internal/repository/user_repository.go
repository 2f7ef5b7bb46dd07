package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/miniapp-auth/internal/model"
)

const (
	// The unique key is (open_id, scope_key); skey carries a plain index so
	// the ON DUPLICATE KEY branch can only ever fire on the identity key.
	upsertUserSQL = "INSERT INTO users (id,open_id,scope_key,tenant_id,role,skey,session_key,profile,created_at,last_visit_at) " +
		"VALUES (?,?,?,?,?,?,?,?,?,?) " +
		"ON DUPLICATE KEY UPDATE skey=VALUES(skey),session_key=VALUES(session_key),profile=VALUES(profile),last_visit_at=VALUES(last_visit_at)"

	selectUserColumns       = "SELECT id,open_id,tenant_id,role,skey,session_key,profile,created_at,last_visit_at FROM users "
	selectUserByIdentitySQL = selectUserColumns + "WHERE open_id=? AND scope_key=? LIMIT 1"
	selectUserByTokenSQL    = selectUserColumns + "WHERE skey=? LIMIT 1"
	selectUserByIDSQL       = selectUserColumns + "WHERE id=? LIMIT 1"

	assignOwnerSQL  = "UPDATE users SET role=? WHERE id=?"
	assignMemberSQL = "UPDATE users SET role=? WHERE id=? AND role=0"
	touchUserSQL    = "UPDATE users SET last_visit_at=? WHERE id=?"
)

// UpsertParams carries everything needed to insert or refresh a user row.
type UpsertParams struct {
	OpenID        string
	Tenant        model.Tenant
	Token         string
	SessionSecret string
	Profile       model.Profile
	At            time.Time
}

// UserRepo persists user identities keyed by (open_id, scope).
type UserRepo struct {
	DB    *sql.DB
	NewID func() string
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db, NewID: uuid.NewString} }

// Upsert inserts a pending user row or refreshes the session fields of an
// existing one. It returns the canonical row and whether it was created by
// this call. Role, created_at and tenant_id are never touched on conflict.
func (r *UserRepo) Upsert(ctx context.Context, p UpsertParams) (model.User, bool, error) {
	profile, err := json.Marshal(p.Profile)
	if err != nil {
		return model.User{}, false, fmt.Errorf("encode profile: %w", err)
	}
	at := p.At.UTC().Truncate(time.Second)
	scope := p.Tenant.UserScope()

	res, err := r.DB.ExecContext(ctx, upsertUserSQL,
		r.NewID(), p.OpenID, scope, p.Tenant.ID, model.RolePending,
		p.Token, p.SessionSecret, string(profile), at, at)
	if err != nil {
		return model.User{}, false, err
	}
	// MySQL reports 1 for an insert, 2 for an update that changed the row
	// and 0 for an update that left it identical.
	n, err := res.RowsAffected()
	if err != nil {
		return model.User{}, false, err
	}

	u, err := r.scanOne(r.DB.QueryRowContext(ctx, selectUserByIdentitySQL, p.OpenID, scope))
	if err != nil {
		return model.User{}, false, err
	}
	return u, n == 1, nil
}

// FindByToken returns the user currently holding the session token.
func (r *UserRepo) FindByToken(ctx context.Context, token string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, selectUserByTokenSQL, token))
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, selectUserByIDSQL, id))
}

// AssignRole records the resolved role. Owner always wins because the
// tenant CAS already decided it; member only replaces a pending role.
func (r *UserRepo) AssignRole(ctx context.Context, userID string, role model.Role) error {
	q := assignMemberSQL
	if role == model.RoleOwner {
		q = assignOwnerSQL
	}
	_, err := r.DB.ExecContext(ctx, q, role, userID)
	return err
}

// Touch bumps last_visit_at for a user. Zero affected rows is not an error:
// two touches within the same second leave the row unchanged.
func (r *UserRepo) Touch(ctx context.Context, userID string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, touchUserSQL, at.UTC().Truncate(time.Second), userID)
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u       model.User
		profile sql.NullString
	)
	err := row.Scan(&u.ID, &u.OpenID, &u.TenantID, &u.Role, &u.Token, &u.SessionSecret,
		&profile, &u.CreatedAt, &u.LastVisitAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if profile.Valid && profile.String != "" {
		if err := json.Unmarshal([]byte(profile.String), &u.Profile); err != nil {
			return model.User{}, fmt.Errorf("decode profile: %w", err)
		}
	}
	return u, nil
}
