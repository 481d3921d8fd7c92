package refresh

import (
	"context"
	"time"
)

// Record is the server side half of a refresh token. The caller holds
// "<ID>:<secret>"; only the secret's ciphertext is stored.
type Record struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	ClientID        string         `json:"client_id"`
	FamilyID        string         `json:"family_id"`
	EncryptedSecret string         `json:"encrypted_secret"`
	Scope           []string       `json:"scope"`
	Claims          map[string]any `json:"claims,omitempty"`
	IssuedAt        time.Time      `json:"issued_at"`
	ExpiresAt       time.Time      `json:"expires_at"`
	Active          bool           `json:"active"`
}

// Repo persists refresh token records.
type Repo interface {
	Insert(ctx context.Context, r *Record) error
	// Get returns errors.ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*Record, error)
	// Rotate deletes oldID and inserts next in one transaction. When oldID no
	// longer exists nothing is inserted and errors.ErrNotFound is returned.
	Rotate(ctx context.Context, oldID string, next *Record) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
