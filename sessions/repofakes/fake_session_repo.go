package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]sessions.Session
	lock     sync.RWMutex
	gets     int
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]sessions.Session),
	}
}

func (r *FakeSessionRepo) Insert(_ context.Context, s *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return apperrors.ErrConflict
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r *FakeSessionRepo) Get(_ context.Context, id string) (*sessions.Session, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.gets++
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &s, nil
}

func (r *FakeSessionRepo) UpdateExpiry(_ context.Context, id string, expiresAt time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	s.ExpiresAt = expiresAt
	r.sessions[id] = s
	return nil
}

func (r *FakeSessionRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *FakeSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// Gets counts repository reads. Test helper.
func (r *FakeSessionRepo) Gets() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.gets
}
