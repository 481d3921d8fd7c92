package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jrsteele09/go-oidc-provider/cache"
	"github.com/jrsteele09/go-oidc-provider/clients"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/internal/utils"
	"github.com/jrsteele09/go-oidc-provider/oauth2"
	"github.com/jrsteele09/go-oidc-provider/sessions"
	"github.com/jrsteele09/go-oidc-provider/users"
)

// InvalidOrExpiredState is returned by GetStateFromStore when there is no state to echo.
const InvalidOrExpiredState = "invalid-or-expired"

const defaultCodeTTL = 5 * time.Minute

// SessionIssuer is the part of the session manager sign-in needs.
type SessionIssuer interface {
	sessions.Service
	Cookie(s *sessions.Session) *sessions.Cookie
}

type Credentials struct {
	Email    string
	Password string
}

// AuthenticationDetails is what the consent screen shows.
type AuthenticationDetails struct {
	ClientID   string    `json:"client_id"`
	Client     string    `json:"client"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	Picture    string    `json:"picture,omitempty"`
	SignedInAt time.Time `json:"signed_in_at"`
}

// CodeResponse is returned from /authorize.
type CodeResponse struct {
	Code        string `json:"code"`
	State       string `json:"state,omitempty"`
	RedirectURI string `json:"redirect_uri"`
}

// AuthenticationService signs users in and issues authorization codes.
type AuthenticationService struct {
	users    users.Repo
	clients  clients.Repo
	sessions SessionIssuer
	cache    *cache.Cache
	codeTTL  time.Duration
}

type AuthenticationServiceOption func(*AuthenticationService)

func WithCodeTTL(ttl time.Duration) AuthenticationServiceOption {
	return func(as *AuthenticationService) {
		as.codeTTL = ttl
	}
}

func NewAuthenticationService(userRepo users.Repo, clientRepo clients.Repo, sessionIssuer SessionIssuer, c *cache.Cache, options ...AuthenticationServiceOption) (*AuthenticationService, error) {
	if userRepo == nil {
		return nil, errors.New("[NewAuthenticationService] Users repo is required")
	}
	if clientRepo == nil {
		return nil, errors.New("[NewAuthenticationService] Clients repo is required")
	}
	if sessionIssuer == nil {
		return nil, errors.New("[NewAuthenticationService] session service is required")
	}
	if c == nil {
		return nil, errors.New("[NewAuthenticationService] cache is required")
	}
	as := &AuthenticationService{
		users:    userRepo,
		clients:  clientRepo,
		sessions: sessionIssuer,
		cache:    c,
		codeTTL:  defaultCodeTTL,
	}
	for _, opt := range options {
		opt(as)
	}
	return as, nil
}

// GetUser checks credentials. Unknown email and wrong password are the same error.
func (as *AuthenticationService) GetUser(ctx context.Context, creds Credentials) (*users.User, error) {
	invalid := apperrors.Unauthorized(apperrors.CodeInvalidCredentials, "invalid email or password")

	user, err := as.users.GetByEmail(ctx, strings.TrimSpace(creds.Email))
	if errors.Is(err, apperrors.ErrNotFound) {
		users.CheckPasswordAgainstNothing(creds.Password)
		return nil, invalid
	}
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to read user")
	}
	if !users.CheckPasswordHash(creds.Password, user.PasswordHash) {
		return nil, invalid
	}

	if !user.EmailVerified {
		return nil, apperrors.BadRequest(apperrors.CodeUnverifiedEmail, "email address has not been verified")
	}
	if user.Suspended {
		return nil, apperrors.BadRequest(apperrors.CodeSuspendedUser, "account is suspended")
	}
	return user, nil
}

// AuthenticateUser opens a session for user and returns the cookie that carries it.
func (as *AuthenticationService) AuthenticateUser(ctx context.Context, user *users.User, attrs sessions.Attributes) (*sessions.Cookie, error) {
	s, err := as.sessions.Create(ctx, user.ID, attrs)
	if err != nil {
		return nil, err
	}
	return as.sessions.Cookie(s), nil
}

// GenerateAuthorizationCode stores payload under a new single use code.
func (as *AuthenticationService) GenerateAuthorizationCode(ctx context.Context, payload *CodePayload) (string, error) {
	if !payload.valid() {
		return "", apperrors.BadRequest(apperrors.CodePayloadMalformed, "authorization code payload is malformed")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Internal(err, apperrors.CodeJSONParseError, "failed to encode authorization code payload")
	}
	token, err := utils.RandomToken(opaqueTokenBytes)
	if err != nil {
		return "", apperrors.Internal(err, apperrors.CodeInternal, "failed to generate authorization code")
	}
	code := codePrefix + token
	if err := as.cache.Store().Set(ctx, code, string(data), as.codeTTL); err != nil {
		return "", apperrors.Internal(err, apperrors.CodeRedisSetFailed, "failed to store authorization code")
	}
	return code, nil
}

// ConsumeAuthorizationCode reads and deletes the payload. A code can be consumed once.
func (as *AuthenticationService) ConsumeAuthorizationCode(ctx context.Context, code string) (*CodePayload, error) {
	if !IsAuthorizationCode(code) {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidCode, "invalid authorization code")
	}
	data, err := as.cache.Store().GetDel(ctx, code)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidCode, "invalid authorization code")
	}
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeRedisGetFailed, "failed to read authorization code")
	}
	var payload CodePayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeJSONParseError, "failed to decode authorization code payload")
	}
	return &payload, nil
}

// GetStateFromStore swaps an opaque state token back for the client's value, once.
// It returns InvalidOrExpiredState, not an error, when nothing is stored.
func (as *AuthenticationService) GetStateFromStore(ctx context.Context, opaque string) (string, error) {
	if !strings.HasPrefix(opaque, statePrefix) {
		return InvalidOrExpiredState, nil
	}
	state, err := as.cache.Store().GetDel(ctx, opaque)
	if errors.Is(err, cache.ErrNotFound) {
		return InvalidOrExpiredState, nil
	}
	if err != nil {
		return "", apperrors.Internal(err, apperrors.CodeRedisGetFailed, "failed to read state")
	}
	return state, nil
}

// ValidSession returns the live session for id or unauthorized_action.
func (as *AuthenticationService) ValidSession(ctx context.Context, id string) (*sessions.Session, error) {
	s, err := as.sessions.Validate(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperrors.Unauthorized(apperrors.CodeUnauthorizedAction, "sign in required")
	}
	return s, nil
}

// GetAuthenticationDetails joins the session with its user and client.
func (as *AuthenticationService) GetAuthenticationDetails(ctx context.Context, s *sessions.Session) (*AuthenticationDetails, error) {
	invalid := apperrors.Unauthorized(apperrors.CodeInvalidSession, "session is not valid")
	if s == nil {
		return nil, invalid
	}
	user, err := as.users.GetByID(ctx, s.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to read user")
	}
	client, err := as.clients.Get(ctx, s.ClientID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to read client")
	}
	return &AuthenticationDetails{
		ClientID:   client.ID,
		Client:     client.Name,
		Email:      user.Email,
		Name:       user.Name,
		Picture:    user.Picture,
		SignedInAt: s.SignedInAt,
	}, nil
}

// CompleteAuthorization issues a code for an already validated request made from session s.
// The opaque state is resolved back to the client's original value.
func (as *AuthenticationService) CompleteAuthorization(ctx context.Context, s *sessions.Session, p *oauth2.AuthorizationParameters) (*CodeResponse, error) {
	if s.ClientID != p.ClientID {
		return nil, apperrors.Unauthorized(apperrors.CodeInvalidSession, "session was started by another client")
	}

	var state string
	if p.State != "" {
		original, err := as.GetStateFromStore(ctx, p.State)
		if err != nil {
			return nil, err
		}
		if original != InvalidOrExpiredState {
			state = original
		}
	}

	code, err := as.GenerateAuthorizationCode(ctx, &CodePayload{
		SessionID:           s.ID,
		UserID:              s.UserID,
		ClientID:            p.ClientID,
		RedirectURI:         p.RedirectURI,
		Scope:               p.Scopes(),
		CodeChallenge:       p.CodeChallenge,
		CodeChallengeMethod: p.CodeChallengeMethod,
		Nonce:               p.Nonce,
		AuthTime:            s.SignedInAt,
	})
	if err != nil {
		return nil, err
	}
	return &CodeResponse{Code: code, State: state, RedirectURI: p.RedirectURI}, nil
}
