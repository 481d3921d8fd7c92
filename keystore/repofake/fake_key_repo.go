package repofake

import (
	"context"
	"sync"

	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/keystore"
)

var _ keystore.Repo = (*FakeKeyRepo)(nil)

type FakeKeyRepo struct {
	keys []*keystore.SigningKey
	lock sync.RWMutex
}

func NewFakeKeyRepo() *FakeKeyRepo {
	return &FakeKeyRepo{}
}

func (r *FakeKeyRepo) Rotate(_ context.Context, key *keystore.SigningKey) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, k := range r.keys {
		if k.Kid == key.Kid {
			return apperrors.ErrConflict
		}
	}
	for _, k := range r.keys {
		if k.Status == keystore.StatusCurrent {
			k.Status = keystore.StatusPrevious
		}
	}
	stored := *key
	stored.Status = keystore.StatusCurrent
	r.keys = append(r.keys, &stored)
	return nil
}

func (r *FakeKeyRepo) GetCurrent(_ context.Context) (*keystore.SigningKey, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, k := range r.keys {
		if k.Status == keystore.StatusCurrent {
			c := *k
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *FakeKeyRepo) List(_ context.Context) ([]*keystore.SigningKey, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]*keystore.SigningKey, 0, len(r.keys))
	for i := len(r.keys) - 1; i >= 0; i-- {
		c := *r.keys[i]
		out = append(out, &c)
	}
	return out, nil
}

// Tamper replaces the stored private key ciphertext of the current key. Test helper.
func (r *FakeKeyRepo) Tamper(encryptedPrivateKey string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, k := range r.keys {
		if k.Status == keystore.StatusCurrent {
			k.EncryptedPrivateKey = encryptedPrivateKey
		}
	}
}
