package clients

import "context"

// Repo stores registered clients. Get returns errors.ErrNotFound for unknown ids.
type Repo interface {
	Upsert(ctx context.Context, client *Client) error
	Get(ctx context.Context, clientID string) (*Client, error)
	List(ctx context.Context) ([]*Client, error)
}
