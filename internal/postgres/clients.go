package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-oidc-provider/clients"
)

type ClientRepo struct {
	pool *pgxpool.Pool
}

var _ clients.Repo = (*ClientRepo)(nil)

const clientColumns = `id, name, secret_hash, redirect_uris, scopes, response_types, token_endpoint_auth_method, active, created_at, updated_at`

func (r *ClientRepo) Upsert(ctx context.Context, c *clients.Client) error {
	const q = `
INSERT INTO clients (` + clientColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    secret_hash = EXCLUDED.secret_hash,
    redirect_uris = EXCLUDED.redirect_uris,
    scopes = EXCLUDED.scopes,
    response_types = EXCLUDED.response_types,
    token_endpoint_auth_method = EXCLUDED.token_endpoint_auth_method,
    active = EXCLUDED.active,
    updated_at = now()`
	_, err := r.pool.Exec(ctx, q, c.ID, c.Name, c.SecretHash, nonNil(c.RedirectURIs), nonNil(c.Scopes),
		nonNil(c.ResponseTypes), string(c.AuthMethod()), c.Active)
	return mapErr(err)
}

func (r *ClientRepo) Get(ctx context.Context, clientID string) (*clients.Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, clientID)
	c, err := scanClient(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func (r *ClientRepo) List(ctx context.Context) ([]*clients.Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*clients.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanClient(row pgx.Row) (*clients.Client, error) {
	var c clients.Client
	var method string
	if err := row.Scan(&c.ID, &c.Name, &c.SecretHash, &c.RedirectURIs, &c.Scopes, &c.ResponseTypes,
		&method, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.TokenEndpointAuthMethod = clients.AuthMethod(method)
	return &c, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
