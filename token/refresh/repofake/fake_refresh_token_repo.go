package repofake

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	records map[string]refresh.Record
	lock    sync.Mutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		records: make(map[string]refresh.Record),
	}
}

func (r *FakeRefreshTokenRepo) Insert(_ context.Context, rec *refresh.Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.records[rec.ID]; ok {
		return apperrors.ErrConflict
	}
	r.records[rec.ID] = *rec
	return nil
}

func (r *FakeRefreshTokenRepo) Get(_ context.Context, id string) (*refresh.Record, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &rec, nil
}

func (r *FakeRefreshTokenRepo) Rotate(_ context.Context, oldID string, next *refresh.Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.records[oldID]; !ok {
		return apperrors.ErrNotFound
	}
	if _, ok := r.records[next.ID]; ok {
		return apperrors.ErrConflict
	}
	delete(r.records, oldID)
	r.records[next.ID] = *next
	return nil
}

func (r *FakeRefreshTokenRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.records[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *FakeRefreshTokenRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	var n int64
	for id, rec := range r.records {
		if rec.ExpiresAt.Before(before) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records. Test helper.
func (r *FakeRefreshTokenRepo) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.records)
}
