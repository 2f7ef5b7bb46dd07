package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/miniapp-auth/internal/model"
)

const (
	selectTenantByAppIDSQL = "SELECT id,app_id,mode,owner_id FROM tenants WHERE app_id=? LIMIT 1"
	selectTenantByIDSQL    = "SELECT id,app_id,mode,owner_id FROM tenants WHERE id=? LIMIT 1"
	casTenantOwnerSQL      = "UPDATE tenants SET owner_id=? WHERE id=? AND owner_id IS NULL"
)

// TenantRepo reads tenant rows and arbitrates tenant ownership.
type TenantRepo struct{ DB *sql.DB }

func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{DB: db} }

// FindByAppID fetches a tenant by the platform app id.
func (r *TenantRepo) FindByAppID(ctx context.Context, appID string) (model.Tenant, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, selectTenantByAppIDSQL, appID))
}

// FindByID fetches a tenant by primary key.
func (r *TenantRepo) FindByID(ctx context.Context, id uint64) (model.Tenant, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, selectTenantByIDSQL, id))
}

// CASOwner sets the tenant owner only if none is recorded yet. It reports
// whether this call won. The conditional UPDATE is the single point of
// arbitration: concurrent callers serialize on the row lock and all but
// one observe zero affected rows.
func (r *TenantRepo) CASOwner(ctx context.Context, tenantID uint64, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, casTenantOwnerSQL, userID, tenantID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *TenantRepo) scanOne(row *sql.Row) (model.Tenant, error) {
	var (
		t     model.Tenant
		mode  string
		owner sql.NullString
	)
	if err := row.Scan(&t.ID, &t.AppID, &mode, &owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tenant{}, ErrNotFound
		}
		return model.Tenant{}, err
	}
	t.Mode = model.ParseMode(mode)
	if owner.Valid {
		t.OwnerID = owner.String
	}
	return t, nil
}
