package users

import "context"

// Repo stores users. Lookups return errors.ErrNotFound when nothing matches.
type Repo interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Upsert(ctx context.Context, user *User) error
}
