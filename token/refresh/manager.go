package refresh

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/internal/utils"
	"github.com/jrsteele09/go-oidc-provider/keystore"
	"github.com/rs/zerolog/log"
)

const (
	DefaultExpiry = 24 * time.Hour
	secretBytes   = 32
	separator     = ":"
)

// Manager issues, redeems and rotates refresh tokens.
type Manager struct {
	repo    Repo
	secret  []byte
	expiry  time.Duration
	nowTime func() time.Time
}

type ManagerOption func(*Manager)

func WithExpiry(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.expiry = d
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func NewManager(repo Repo, secret []byte, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] refresh token repo is required")
	}
	if len(secret) == 0 {
		return nil, errors.New("[NewManager] refresh token secret is required")
	}
	m := &Manager{
		repo:    repo,
		secret:  secret,
		expiry:  DefaultExpiry,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Issue starts a new token family and returns the external token string.
func (m *Manager) Issue(ctx context.Context, userID, clientID string, scope []string, claims map[string]any) (string, *Record, error) {
	token, rec, err := m.newRecord(userID, clientID, uuid.NewString(), scope, claims)
	if err != nil {
		return "", nil, err
	}
	if err := m.repo.Insert(ctx, rec); err != nil {
		return "", nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to store refresh token")
	}
	return token, rec, nil
}

// Parse splits "<id>:<secret>" on the first separator.
func Parse(token string) (id, secret string, err error) {
	id, secret, ok := strings.Cut(token, separator)
	if !ok || id == "" || secret == "" {
		return "", "", apperrors.Unauthorized(apperrors.CodeInvalidRefreshToken, "invalid refresh token")
	}
	return id, secret, nil
}

// ClientIDFor names the client a token was issued to, without checking the secret.
// Used to pick the client authentication method when the request carries no client_id.
func (m *Manager) ClientIDFor(ctx context.Context, token string) (string, error) {
	id, _, err := Parse(token)
	if err != nil {
		return "", err
	}
	rec, err := m.get(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.ClientID, nil
}

// Redeem verifies token for clientID and rotates it. It returns the replacement
// token string and record. A token can be redeemed once; the old string stops
// working as soon as this returns.
func (m *Manager) Redeem(ctx context.Context, token, clientID string) (string, *Record, error) {
	id, presented, err := Parse(token)
	if err != nil {
		return "", nil, err
	}
	rec, err := m.get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if rec.ClientID != clientID {
		log.Warn().Str("record_id", rec.ID).Str("client_id", clientID).Msg("refresh token presented by another client")
		return "", nil, apperrors.Unauthorized(apperrors.CodeInvalidRefreshTokenForClient, "refresh token was not issued to this client")
	}

	stored, err := keystore.Decrypt(m.secret, rec.EncryptedSecret)
	if err != nil {
		return "", nil, apperrors.Internal(err, apperrors.CodeDecryptionFailed, "failed to decrypt refresh token")
	}
	if subtle.ConstantTimeCompare(stored, []byte(presented)) != 1 || !rec.Active {
		return "", nil, apperrors.Unauthorized(apperrors.CodeInvalidRefreshToken, "invalid refresh token")
	}
	if !m.nowTime().Before(rec.ExpiresAt) {
		return "", nil, apperrors.Unauthorized(apperrors.CodeRefreshTokenExpired, "refresh token expired")
	}

	nextToken, next, err := m.newRecord(rec.UserID, rec.ClientID, rec.FamilyID, rec.Scope, rec.Claims)
	if err != nil {
		return "", nil, err
	}
	if err := m.repo.Rotate(ctx, rec.ID, next); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Lost a race with a concurrent redemption of the same token.
			return "", nil, apperrors.Unauthorized(apperrors.CodeInvalidRefreshToken, "invalid refresh token")
		}
		return "", nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to rotate refresh token")
	}
	return nextToken, next, nil
}

// Revoke deletes the record behind token. Unknown tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	id, _, err := Parse(token)
	if err != nil {
		return err
	}
	if err := m.repo.Delete(ctx, id); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to delete refresh token")
	}
	return nil
}

// DeleteExpired removes records that expired before now.
func (m *Manager) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpired(ctx, m.nowTime())
	if err != nil {
		return 0, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to delete expired refresh tokens")
	}
	return n, nil
}

func (m *Manager) get(ctx context.Context, id string) (*Record, error) {
	rec, err := m.repo.Get(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthorized(apperrors.CodeInvalidRefreshToken, "invalid refresh token")
	}
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to read refresh token")
	}
	return rec, nil
}

func (m *Manager) newRecord(userID, clientID, familyID string, scope []string, claims map[string]any) (string, *Record, error) {
	secret, err := utils.RandomToken(secretBytes)
	if err != nil {
		return "", nil, apperrors.Internal(err, apperrors.CodeKeyCreationFailed, "failed to generate refresh token")
	}
	encrypted, err := keystore.Encrypt(m.secret, []byte(secret))
	if err != nil {
		return "", nil, apperrors.Internal(err, apperrors.CodeEncryptionFailed, "failed to encrypt refresh token")
	}
	now := m.nowTime()
	rec := &Record{
		ID:              uuid.NewString(),
		UserID:          userID,
		ClientID:        clientID,
		FamilyID:        familyID,
		EncryptedSecret: encrypted,
		Scope:           scope,
		Claims:          claims,
		IssuedAt:        now,
		ExpiresAt:       now.Add(m.expiry),
		Active:          true,
	}
	return rec.ID + separator + secret, rec, nil
}
