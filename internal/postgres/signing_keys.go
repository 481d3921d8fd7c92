package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-oidc-provider/keystore"
)

type SigningKeyRepo struct {
	pool *pgxpool.Pool
}

var _ keystore.Repo = (*SigningKeyRepo)(nil)

const signingKeyColumns = `id, kid, status, encrypted_intermediate_key, encrypted_private_key, public_key, created_at`

// Rotate demotes the current key and inserts the new one in a single transaction,
// so readers never see zero or two current keys. The partial unique index on
// status backs this up.
func (r *SigningKeyRepo) Rotate(ctx context.Context, key *keystore.SigningKey) error {
	return mapErr(inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE signing_keys SET status = 'previous' WHERE status = 'current'`); err != nil {
			return err
		}
		const q = `
INSERT INTO signing_keys (` + signingKeyColumns + `)
VALUES ($1, $2, 'current', $3, $4, $5, $6)`
		_, err := tx.Exec(ctx, q, key.ID, key.Kid, key.EncryptedIntermediateKey, key.EncryptedPrivateKey, key.PublicKey, key.CreatedAt)
		return err
	}))
}

func (r *SigningKeyRepo) GetCurrent(ctx context.Context) (*keystore.SigningKey, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+signingKeyColumns+` FROM signing_keys WHERE status = 'current'`)
	k, err := scanSigningKey(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return k, nil
}

func (r *SigningKeyRepo) List(ctx context.Context) ([]*keystore.SigningKey, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+signingKeyColumns+` FROM signing_keys ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*keystore.SigningKey
	for rows.Next() {
		k, err := scanSigningKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func scanSigningKey(row pgx.Row) (*keystore.SigningKey, error) {
	var k keystore.SigningKey
	var status string
	if err := row.Scan(&k.ID, &k.Kid, &status, &k.EncryptedIntermediateKey, &k.EncryptedPrivateKey, &k.PublicKey, &k.CreatedAt); err != nil {
		return nil, err
	}
	k.Status = keystore.Status(status)
	return &k, nil
}
