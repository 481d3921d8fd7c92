package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implements Store in process. Suitable for a single instance or tests.
type MemoryStore struct {
	c  *gocache.Cache
	mu sync.Mutex // serialises the compound operations (GetDel, DelIfValue, SAdd)
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func expiry(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := s.c.Add(key, value, expiry(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	str, ok := v.(string)
	if !ok {
		return "", ErrNotFound
	}
	return str, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.c.Set(key, value, expiry(ttl))
	return nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.c.Delete(k)
	}
	return nil
}

func (s *MemoryStore) DelIfValue(ctx context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.Get(ctx, key)
	if err != nil || v != value {
		return false, nil
	}
	s.c.Delete(key)
	return true, nil
}

func (s *MemoryStore) GetDel(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	s.c.Delete(key)
	return v, nil
}

func (s *MemoryStore) SAdd(_ context.Context, key string, ttl time.Duration, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := map[string]struct{}{}
	if v, ok := s.c.Get(key); ok {
		if existing, ok := v.(map[string]struct{}); ok {
			for m := range existing {
				set[m] = struct{}{}
			}
		}
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	s.c.Set(key, set, expiry(ttl))
	return nil
}

func (s *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.c.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	set, ok := v.(map[string]struct{})
	if !ok || len(set) == 0 {
		return nil, ErrNotFound
	}
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	s.c.Flush()
	return nil
}
