package sessions

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/go-oidc-provider/cache"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/internal/utils"
	"github.com/rs/zerolog/log"
)

const (
	DefaultExpiry     = 48 * time.Hour
	defaultCacheTTL   = time.Minute
	defaultCookieName = "oidc_session"
	cacheKeyPrefix    = "session:"
	sessionIDBytes    = 30
)

// Manager implements Service on a Repo, with lookups going through the locked cache.
type Manager struct {
	repo         Repo
	cache        *cache.Cache
	expiry       time.Duration
	cacheTTL     time.Duration
	cookieName   string
	secureCookie bool
	nowTime      func() time.Time
}

var _ Service = (*Manager)(nil)

type ManagerOption func(*Manager)

func WithExpiry(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.expiry = d
	}
}

func WithCookie(name string, secure bool) ManagerOption {
	return func(m *Manager) {
		m.cookieName = name
		m.secureCookie = secure
	}
}

func WithCacheTTL(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.cacheTTL = d
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func NewManager(repo Repo, c *cache.Cache, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] session repo is required")
	}
	if c == nil {
		return nil, errors.New("[NewManager] cache is required")
	}
	m := &Manager{
		repo:       repo,
		cache:      c,
		expiry:     DefaultExpiry,
		cacheTTL:   defaultCacheTTL,
		cookieName: defaultCookieName,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) Create(ctx context.Context, userID string, attrs Attributes) (*Session, error) {
	id, err := utils.RandomToken(sessionIDBytes)
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeInternal, "failed to generate session id")
	}
	now := m.nowTime()
	s := &Session{
		ID:         id,
		UserID:     userID,
		ClientID:   attrs.ClientID,
		UserAgent:  attrs.UserAgent,
		SignedInAt: now,
		ExpiresAt:  now.Add(m.expiry),
	}
	if err := m.repo.Insert(ctx, s); err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to create session")
	}
	return s, nil
}

func (m *Manager) Validate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	s, ok, err := cache.Cached(ctx, m.cache, cacheKeyPrefix+id, m.cacheTTL, func(ctx context.Context) (*Session, error) {
		return m.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn().Msg("session cache unavailable, reading store directly")
		if s, err = m.load(ctx, id); err != nil {
			return nil, err
		}
	}
	if s == nil {
		return nil, nil
	}

	now := m.nowTime()
	if !now.Before(s.ExpiresAt) {
		if err := m.Invalidate(ctx, id); err != nil {
			log.Err(err).Msg("failed to remove expired session")
		}
		return nil, nil
	}

	if s.ExpiresAt.Sub(now) < m.expiry/2 {
		s.ExpiresAt = now.Add(m.expiry)
		s.Fresh = true
		if err := m.repo.UpdateExpiry(ctx, id, s.ExpiresAt); err != nil {
			return nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to extend session")
		}
		if err := m.cache.Invalidate(ctx, cacheKeyPrefix+id); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (m *Manager) load(ctx context.Context, id string) (*Session, error) {
	s, err := m.repo.Get(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to read session")
	}
	return s, nil
}

func (m *Manager) Invalidate(ctx context.Context, id string) error {
	if err := m.repo.Delete(ctx, id); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to delete session")
	}
	return m.cache.Invalidate(ctx, cacheKeyPrefix+id)
}

// DeleteExpired purges sessions that expired before now.
func (m *Manager) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpired(ctx, m.nowTime())
	if err != nil {
		return 0, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to delete expired sessions")
	}
	return n, nil
}

// Cookie describes the cookie that carries s.
func (m *Manager) Cookie(s *Session) *Cookie {
	return &Cookie{
		Name:  m.cookieName,
		Value: s.ID,
		Attributes: CookieAttributes{
			Path:     "/",
			HTTPOnly: true,
			Secure:   m.secureCookie,
			SameSite: http.SameSiteLaxMode,
			Expires:  s.ExpiresAt,
		},
	}
}

// BlankCookie clears the session cookie.
func (m *Manager) BlankCookie() *Cookie {
	return &Cookie{
		Name: m.cookieName,
		Attributes: CookieAttributes{
			Path:     "/",
			HTTPOnly: true,
			Secure:   m.secureCookie,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		},
	}
}
