package keystore

import (
	"context"
	"time"
)

type Status string

const (
	StatusCurrent  Status = "current"
	StatusPrevious Status = "previous"
)

// SigningKey is the stored form of a key. Private material is never held in clear.
type SigningKey struct {
	ID                       string    `json:"id"`
	Kid                      string    `json:"kid"`
	Status                   Status    `json:"status"`
	EncryptedIntermediateKey string    `json:"encrypted_intermediate_key"`
	EncryptedPrivateKey      string    `json:"encrypted_private_key"`
	PublicKey                JWK       `json:"public_key"`
	CreatedAt                time.Time `json:"created_at"`
}

// Repo persists signing keys. Implementations must keep exactly one key current.
type Repo interface {
	// Rotate demotes any current key to previous and inserts key as current, atomically.
	Rotate(ctx context.Context, key *SigningKey) error
	// GetCurrent returns errors.ErrNotFound when no key has been created.
	GetCurrent(ctx context.Context) (*SigningKey, error)
	// List returns every key, newest first.
	List(ctx context.Context) ([]*SigningKey, error)
}
