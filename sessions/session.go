// Package sessions manages server side sign-in sessions. Callers depend on the
// Service interface only, never on how sessions are stored.
package sessions

import (
	"context"
	"time"
)

// Session is an authenticated user bound to the client that started the sign-in.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ClientID   string    `json:"client_id"`
	UserAgent  string    `json:"user_agent"`
	SignedInAt time.Time `json:"signed_in_at"`
	ExpiresAt  time.Time `json:"expires_at"`

	// Fresh is set by Validate when the expiry was extended and the cookie must be reissued.
	Fresh bool `json:"-"`
}

// Attributes are recorded on a session at creation.
type Attributes struct {
	ClientID  string
	UserAgent string
}

type Service interface {
	Create(ctx context.Context, userID string, attrs Attributes) (*Session, error)
	// Validate returns nil without error when the session is unknown or expired.
	Validate(ctx context.Context, id string) (*Session, error)
	Invalidate(ctx context.Context, id string) error
}

// Repo persists sessions. Get returns errors.ErrNotFound for unknown ids.
type Repo interface {
	Insert(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
