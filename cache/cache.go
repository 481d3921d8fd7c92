package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/internal/metrics"
	"github.com/jrsteele09/go-oidc-provider/internal/utils"
	"github.com/rs/zerolog/log"
)

const (
	defaultLockTTL    = 5 * time.Second
	defaultRetries    = 5
	defaultRetryDelay = time.Second
	lockPrefix        = "lock-"
)

// Cache wraps a Store with a per key lock so only one caller runs the miss callback.
type Cache struct {
	store      Store
	lockTTL    time.Duration
	retries    int
	retryDelay time.Duration
}

type CacheOption func(*Cache)

// WithLockTTL sets how long an acquired lock lives if never released.
func WithLockTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.lockTTL = ttl
	}
}

// WithRetries sets the number of lock attempts and the pause between them.
func WithRetries(attempts int, delay time.Duration) CacheOption {
	return func(c *Cache) {
		c.retries = attempts
		c.retryDelay = delay
	}
}

func New(store Store, options ...CacheOption) *Cache {
	c := &Cache{
		store:      store,
		lockTTL:    defaultLockTTL,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.retries < 1 {
		c.retries = 1
	}
	return c
}

// Store exposes the underlying primitives for callers that need no lock.
func (c *Cache) Store() Store {
	return c.store
}

// Invalidate removes cached entries.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if err := c.store.Del(ctx, keys...); err != nil {
		return apperrors.Internal(err, apperrors.CodeCacheFailed, "failed to invalidate cache entry")
	}
	return nil
}

// withLock runs fn while holding lock-<key>. acquired is false when every attempt failed.
// The lock is released on every path once taken, but only while it still holds this
// caller's token: a lock that expired and was taken by another caller is left alone.
func (c *Cache) withLock(ctx context.Context, key string, fn func() error) (acquired bool, err error) {
	lockKey := lockPrefix + key
	token, err := utils.RandomToken(16)
	if err != nil {
		return false, apperrors.Internal(err, apperrors.CodeCacheFailed, "failed to create lock token")
	}
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		ok, setErr := c.store.SetNX(ctx, lockKey, token, c.lockTTL)
		if setErr != nil {
			log.Warn().Err(setErr).Str("key", lockKey).Msg("cache lock attempt failed")
			continue
		}
		if ok {
			acquired = true
			break
		}
	}
	if !acquired {
		metrics.CacheLockFailures.Inc()
		log.Warn().Str("key", key).Int("attempts", c.retries).Msg("cache lock not acquired")
		return false, nil
	}

	defer func() {
		released, delErr := c.store.DelIfValue(context.WithoutCancel(ctx), lockKey, token)
		switch {
		case delErr != nil:
			log.Error().Err(delErr).Str("key", lockKey).Msg("failed to release cache lock")
		case !released:
			log.Warn().Str("key", lockKey).Dur("ttl", c.lockTTL).Msg("cache lock expired before release")
		}
	}()
	return true, fn()
}

// Cached returns the value stored at key, or computes it with onMiss and stores it for ttl.
// ok is false when the lock could not be acquired. That means the cache is unavailable,
// not that the value is missing, and the zero T is returned with a nil error.
func Cached[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, onMiss func(context.Context) (T, error)) (value T, ok bool, err error) {
	acquired, err := c.withLock(ctx, key, func() error {
		raw, getErr := c.store.Get(ctx, key)
		switch {
		case getErr == nil:
			if jsonErr := json.Unmarshal([]byte(raw), &value); jsonErr != nil {
				return apperrors.Internal(jsonErr, apperrors.CodeJSONParseError, "failed to decode cached value")
			}
			return nil
		case !errors.Is(getErr, ErrNotFound):
			return apperrors.Internal(getErr, apperrors.CodeRedisGetFailed, "failed to read cache")
		}

		fresh, missErr := onMiss(ctx)
		if missErr != nil {
			return missErr
		}
		encoded, jsonErr := json.Marshal(fresh)
		if jsonErr != nil {
			return apperrors.Internal(jsonErr, apperrors.CodeJSONParseError, "failed to encode cache value")
		}
		if setErr := c.store.Set(ctx, key, string(encoded), ttl); setErr != nil {
			return apperrors.Internal(setErr, apperrors.CodeRedisSetFailed, "failed to write cache")
		}
		value = fresh
		return nil
	})
	if err != nil || !acquired {
		var zero T
		return zero, false, err
	}
	return value, true, nil
}

// CachedSet is Cached for collections. Each member is stored as its own set entry
// sharing the ttl, so member order is not preserved.
func CachedSet[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, onMiss func(context.Context) ([]T, error)) (values []T, ok bool, err error) {
	acquired, err := c.withLock(ctx, key, func() error {
		members, getErr := c.store.SMembers(ctx, key)
		switch {
		case getErr == nil:
			values = make([]T, 0, len(members))
			for _, m := range members {
				var v T
				if jsonErr := json.Unmarshal([]byte(m), &v); jsonErr != nil {
					return apperrors.Internal(jsonErr, apperrors.CodeJSONParseError, "failed to decode cached member")
				}
				values = append(values, v)
			}
			return nil
		case !errors.Is(getErr, ErrNotFound):
			return apperrors.Internal(getErr, apperrors.CodeRedisGetFailed, "failed to read cache")
		}

		fresh, missErr := onMiss(ctx)
		if missErr != nil {
			return missErr
		}
		encoded := make([]string, 0, len(fresh))
		for _, v := range fresh {
			b, jsonErr := json.Marshal(v)
			if jsonErr != nil {
				return apperrors.Internal(jsonErr, apperrors.CodeJSONParseError, "failed to encode cache member")
			}
			encoded = append(encoded, string(b))
		}
		if setErr := c.store.SAdd(ctx, key, ttl, encoded...); setErr != nil {
			return apperrors.Internal(setErr, apperrors.CodeRedisSetFailed, "failed to write cache")
		}
		values = fresh
		return nil
	})
	if err != nil || !acquired {
		return nil, false, err
	}
	return values, true, nil
}
