package keystore

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/internal/metrics"
	"github.com/jrsteele09/go-oidc-provider/internal/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const intermediateKeySize = 32

// Engine owns the signing key lifecycle: creation, envelope encryption,
// rotation and publication. Private keys only leave it decrypted as a KeyPair.
type Engine struct {
	repo         Repo
	masterSecret []byte
	nowTime      func() time.Time
	extract      singleflight.Group
}

type EngineOption func(*Engine)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowTime = nowFunc
	}
}

func NewEngine(repo Repo, masterSecret []byte, options ...EngineOption) (*Engine, error) {
	if repo == nil {
		return nil, errors.New("[NewEngine] key repo is required")
	}
	if len(masterSecret) == 0 {
		return nil, errors.New("[NewEngine] master secret is required")
	}
	e := &Engine{
		repo:         repo,
		masterSecret: masterSecret,
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// CreateKey generates a new RSA key, stores it encrypted as the current key
// (demoting the previous one) and returns its public JWK.
func (e *Engine) CreateKey(ctx context.Context, bits int) (*JWK, error) {
	kid := uuid.NewString()
	keyPair, err := GenerateRSAKeyPair(kid, bits)
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeKeyPairGenerationFailed, "failed to generate key pair")
	}

	intermediate, err := utils.RandomHex(intermediateKeySize)
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeKeyCreationFailed, "failed to generate intermediate key")
	}
	encIntermediate, err := Encrypt(e.masterSecret, []byte(intermediate))
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeEncryptionFailed, "failed to encrypt intermediate key")
	}
	encPrivate, err := Encrypt([]byte(intermediate), keyPair.ExportPrivateKeyPEM())
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeEncryptionFailed, "failed to encrypt private key")
	}

	jwk := keyPair.ToJWK()
	record := &SigningKey{
		ID:                       uuid.NewString(),
		Kid:                      kid,
		Status:                   StatusCurrent,
		EncryptedIntermediateKey: encIntermediate,
		EncryptedPrivateKey:      encPrivate,
		PublicKey:                jwk,
		CreatedAt:                e.nowTime(),
	}
	if err := e.repo.Rotate(ctx, record); err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeKeyCreationFailed, "failed to store signing key")
	}

	metrics.KeyRotations.Inc()
	log.Info().Str("kid", kid).Int("bits", keyPair.PublicKey.N.BitLen()).Msg("signing key rotated")
	return &jwk, nil
}

// EnsureCurrentKey creates a key when none is current. It reports whether one was created.
func (e *Engine) EnsureCurrentKey(ctx context.Context, bits int) (bool, error) {
	_, err := e.repo.GetCurrent(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return false, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to read current signing key")
	}
	if _, err := e.CreateKey(ctx, bits); err != nil {
		return false, err
	}
	return true, nil
}

// ExtractKeysFromCurrent decrypts the current key. Every failure is reported as invalid_key.
// Concurrent callers share one extraction, which is not bound to any single caller's cancellation.
func (e *Engine) ExtractKeysFromCurrent(ctx context.Context) (*KeyPair, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := e.extract.Do("current", func() (any, error) {
		return e.extractCurrent(shared)
	})
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeInvalidKey, "invalid key")
	}
	return v.(*KeyPair), nil
}

func (e *Engine) extractCurrent(ctx context.Context) (*KeyPair, error) {
	record, err := e.repo.GetCurrent(ctx)
	if err != nil {
		return nil, err
	}
	intermediate, err := Decrypt(e.masterSecret, record.EncryptedIntermediateKey)
	if err != nil {
		return nil, err
	}
	privatePEM, err := Decrypt(intermediate, record.EncryptedPrivateKey)
	if err != nil {
		return nil, err
	}
	return LoadKeyPairFromPEM(record.Kid, privatePEM)
}

// Signer returns a signer for the current key.
func (e *Engine) Signer(ctx context.Context) (*KeyPairSigner, error) {
	kp, err := e.ExtractKeysFromCurrent(ctx)
	if err != nil {
		return nil, err
	}
	return NewKeyPairSigner(kp), nil
}

// JWKS publishes every stored key, current and previous.
func (e *Engine) JWKS(ctx context.Context) (*JWKS, error) {
	records, err := e.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to list signing keys")
	}
	jwks := &JWKS{Keys: make([]JWK, 0, len(records))}
	for _, r := range records {
		jwks.Keys = append(jwks.Keys, JWK{
			Kty: r.PublicKey.Kty,
			Kid: r.PublicKey.Kid,
			Use: r.PublicKey.Use,
			Alg: r.PublicKey.Alg,
			N:   r.PublicKey.N,
			E:   r.PublicKey.E,
		})
	}
	return jwks, nil
}

// VerificationKey finds the public key named by kid among all published keys.
func (e *Engine) VerificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	jwks, err := e.JWKS(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range jwks.Keys {
		if k.Kid != kid {
			continue
		}
		pub, err := k.PublicKey()
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeJWKMalformed, http.StatusUnauthorized, "malformed signing key")
		}
		return pub, nil
	}
	return nil, apperrors.Unauthorized(apperrors.CodeTokenSignatureInvalid, "unknown signing key")
}
