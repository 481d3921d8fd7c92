package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/token/refresh"
)

type RefreshTokenRepo struct {
	pool *pgxpool.Pool
}

var _ refresh.Repo = (*RefreshTokenRepo)(nil)

const refreshColumns = `id, user_id, client_id, family_id, encrypted_secret, scope, claims, issued_at, expires_at, active`

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertRefresh(ctx context.Context, db execer, rec *refresh.Record) error {
	const q = `INSERT INTO refresh_tokens (` + refreshColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := db.Exec(ctx, q, rec.ID, rec.UserID, rec.ClientID, rec.FamilyID, rec.EncryptedSecret,
		nonNil(rec.Scope), rec.Claims, rec.IssuedAt, rec.ExpiresAt, rec.Active)
	return err
}

func (r *RefreshTokenRepo) Insert(ctx context.Context, rec *refresh.Record) error {
	return mapErr(insertRefresh(ctx, r.pool, rec))
}

func (r *RefreshTokenRepo) Get(ctx context.Context, id string) (*refresh.Record, error) {
	var rec refresh.Record
	err := r.pool.QueryRow(ctx, `SELECT `+refreshColumns+` FROM refresh_tokens WHERE id = $1`, id).Scan(
		&rec.ID, &rec.UserID, &rec.ClientID, &rec.FamilyID, &rec.EncryptedSecret,
		&rec.Scope, &rec.Claims, &rec.IssuedAt, &rec.ExpiresAt, &rec.Active)
	if err != nil {
		return nil, mapErr(err)
	}
	return &rec, nil
}

// Rotate deletes oldID and inserts next together. The delete is the serialization
// point: a concurrent rotation of the same record blocks on the row lock, then
// deletes nothing and gets ErrNotFound.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, oldID string, next *refresh.Record) error {
	return mapErr(inTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, oldID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return apperrors.ErrNotFound
		}
		return insertRefresh(ctx, tx, next)
	}))
}

func (r *RefreshTokenRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
