// Package cache holds short lived protocol state (opaque state tokens,
// authorization codes, session lookups) and the per key lock that keeps
// concurrent misses from stampeding the backing store.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store reads when the key does not exist or has expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is the primitive key/value contract both backends implement.
type Store interface {
	// SetNX stores value only if key is absent. It reports whether the value was stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// DelIfValue removes key only while it still holds value. It reports whether key was removed.
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	// GetDel reads and removes key atomically. At most one caller observes the value.
	GetDel(ctx context.Context, key string) (string, error)
	// SAdd adds members to the set at key and sets the TTL of the whole set.
	SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}
