package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-oidc-provider/users"
)

// UserRepo keeps lookup fields in columns and the OIDC profile in a JSONB document.
type UserRepo struct {
	pool *pgxpool.Pool
}

var _ users.Repo = (*UserRepo)(nil)

const userColumns = `password_hash, data, created_at, updated_at`

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepo) get(ctx context.Context, q string, arg string) (*users.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *UserRepo) Upsert(ctx context.Context, u *users.User) error {
	const q = `
INSERT INTO users (id, email, password_hash, suspended, data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (id) DO UPDATE SET
    email = EXCLUDED.email,
    password_hash = EXCLUDED.password_hash,
    suspended = EXCLUDED.suspended,
    data = EXCLUDED.data,
    updated_at = now()`
	_, err := r.pool.Exec(ctx, q, u.ID, u.Email, u.PasswordHash, u.Suspended, u)
	return mapErr(err)
}

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	var hash string
	if err := row.Scan(&hash, &u, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	return &u, nil
}
