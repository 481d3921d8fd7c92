package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/sessions"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

var _ sessions.Repo = (*SessionRepo)(nil)

func (r *SessionRepo) Insert(ctx context.Context, s *sessions.Session) error {
	const q = `
INSERT INTO sessions (id, user_id, client_id, user_agent, signed_in_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, q, s.ID, s.UserID, s.ClientID, s.UserAgent, s.SignedInAt, s.ExpiresAt)
	return mapErr(err)
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*sessions.Session, error) {
	const q = `SELECT id, user_id, client_id, user_agent, signed_in_at, expires_at FROM sessions WHERE id = $1`
	var s sessions.Session
	if err := r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.UserID, &s.ClientID, &s.UserAgent, &s.SignedInAt, &s.ExpiresAt); err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *SessionRepo) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sessions SET expires_at = $2 WHERE id = $1`, id, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
