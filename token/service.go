// Package token serves the token and userinfo endpoints: grant dispatch, client
// authentication, PKCE and the projection of user claims by scope.
package token

import (
	"context"
	"errors"
	"strings"

	"github.com/jrsteele09/go-oidc-provider/auth"
	"github.com/jrsteele09/go-oidc-provider/clients"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/internal/metrics"
	"github.com/jrsteele09/go-oidc-provider/internal/utils"
	"github.com/jrsteele09/go-oidc-provider/keystore"
	"github.com/jrsteele09/go-oidc-provider/oauth2"
	"github.com/jrsteele09/go-oidc-provider/token/jwt"
	"github.com/jrsteele09/go-oidc-provider/token/refresh"
	"github.com/jrsteele09/go-oidc-provider/users"
	"github.com/rs/zerolog/log"
)

// CodeConsumer redeems authorization codes.
type CodeConsumer interface {
	ConsumeAuthorizationCode(ctx context.Context, code string) (*auth.CodePayload, error)
}

// SignerSource hands out a signer for the current key.
type SignerSource interface {
	Signer(ctx context.Context) (*keystore.KeyPairSigner, error)
}

// Deps holds all dependencies for the Service
type Deps struct {
	Clients  clients.Repo
	Users    users.Repo
	Codes    CodeConsumer
	Keys     SignerSource
	Refresh  *refresh.Manager
	Creator  *jwt.Creator
	Verifier *jwt.Verifier
	// UserInfoURL is the audience of access tokens.
	UserInfoURL string
}

type Service struct {
	clients     clients.Repo
	users       users.Repo
	codes       CodeConsumer
	keys        SignerSource
	refresh     *refresh.Manager
	creator     *jwt.Creator
	verifier    *jwt.Verifier
	userInfoURL string
}

func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Clients == nil:
		return nil, errors.New("[NewService] Clients repo is required")
	case deps.Users == nil:
		return nil, errors.New("[NewService] Users repo is required")
	case deps.Codes == nil:
		return nil, errors.New("[NewService] code consumer is required")
	case deps.Keys == nil:
		return nil, errors.New("[NewService] signer source is required")
	case deps.Refresh == nil:
		return nil, errors.New("[NewService] refresh token manager is required")
	case deps.Creator == nil:
		return nil, errors.New("[NewService] token creator is required")
	case deps.Verifier == nil:
		return nil, errors.New("[NewService] token verifier is required")
	case deps.UserInfoURL == "":
		return nil, errors.New("[NewService] userinfo url is required")
	}
	return &Service{
		clients:     deps.Clients,
		users:       deps.Users,
		codes:       deps.Codes,
		keys:        deps.Keys,
		refresh:     deps.Refresh,
		creator:     deps.Creator,
		verifier:    deps.Verifier,
		userInfoURL: deps.UserInfoURL,
	}, nil
}

// Exchange dispatches a token request on its grant type.
func (s *Service) Exchange(ctx context.Context, req *oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	var (
		resp *oauth2.TokenResponse
		err  error
	)
	switch req.GrantType {
	case oauth2.AuthorizationCodeGrant:
		resp, err = s.exchangeCode(ctx, req)
	case oauth2.RefreshTokenGrant:
		resp, err = s.exchangeRefreshToken(ctx, req)
	default:
		return nil, apperrors.BadRequest(apperrors.CodeUnsupportedGrantType, "unsupported grant_type")
	}
	if err != nil {
		return nil, err
	}
	metrics.TokensIssued.WithLabelValues(string(req.GrantType)).Inc()
	return resp, nil
}

func (s *Service) exchangeCode(ctx context.Context, req *oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	if req.Code == "" || req.RedirectURI == "" {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidAuthorizationCode, "code and redirect_uri are required")
	}
	payload, err := s.codes.ConsumeAuthorizationCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	owner, err := s.getClient(ctx, payload.ClientID)
	if err != nil {
		return nil, err
	}
	client, err := s.authenticateClient(ctx, req, owner)
	if err != nil {
		return nil, err
	}
	if client.ID != payload.ClientID {
		log.Warn().Str("client_id", client.ID).Msg("authorization code presented by another client")
		return nil, apperrors.BadRequest(apperrors.CodeInvalidCode, "invalid authorization code")
	}
	if req.RedirectURI != payload.RedirectURI {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidCode, "redirect_uri does not match the authorization request")
	}
	if !verifyPKCE(payload.CodeChallenge, payload.CodeChallengeMethod, req.CodeVerifier) {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidCode, "code_verifier does not match")
	}

	user, err := s.getUser(ctx, payload.UserID)
	if err != nil {
		return nil, err
	}
	signer, err := s.keys.Signer(ctx)
	if err != nil {
		return nil, err
	}
	claims := ProjectClaims(user, payload.Scope)

	resp := &oauth2.TokenResponse{
		TokenType: oauth2.TokenTypeBearer,
		ExpiresIn: int(s.creator.AccessTokenExpiry().Seconds()),
		Scope:     oauth2.JoinScopes(payload.Scope),
	}
	if resp.AccessToken, err = s.creator.CreateAccessToken(signer, user.ID, client.ID, payload.Scope); err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeInternal, "failed to create access token")
	}
	if utils.Contains(payload.Scope, oauth2.ScopeOpenID) {
		resp.IDToken, err = s.creator.CreateIDToken(signer, jwt.IDTokenRequest{
			Subject:  user.ID,
			ClientID: client.ID,
			Nonce:    payload.Nonce,
			AuthTime: payload.AuthTime,
			Claims:   claims.IDToken,
		})
		if err != nil {
			return nil, apperrors.Internal(err, apperrors.CodeInternal, "failed to create id token")
		}
	}
	if utils.Contains(payload.Scope, oauth2.ScopeOfflineAccess) {
		if resp.RefreshToken, _, err = s.refresh.Issue(ctx, user.ID, client.ID, payload.Scope, claims.UserInfo); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (s *Service) exchangeRefreshToken(ctx context.Context, req *oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, apperrors.BadRequest(apperrors.CodeMissingRefreshToken, "refresh_token is required")
	}
	ownerID, err := s.refresh.ClientIDFor(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	owner, err := s.getClient(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	client, err := s.authenticateClient(ctx, req, owner)
	if err != nil {
		return nil, err
	}

	next, rec, err := s.refresh.Redeem(ctx, req.RefreshToken, client.ID)
	if err != nil {
		return nil, err
	}
	signer, err := s.keys.Signer(ctx)
	if err != nil {
		return nil, err
	}
	access, err := s.creator.CreateAccessToken(signer, rec.UserID, client.ID, rec.Scope)
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeInternal, "failed to create access token")
	}
	return &oauth2.TokenResponse{
		AccessToken:  access,
		RefreshToken: next,
		TokenType:    oauth2.TokenTypeBearer,
		ExpiresIn:    int(s.creator.AccessTokenExpiry().Seconds()),
		Scope:        oauth2.JoinScopes(rec.Scope),
	}, nil
}

// UserInfo returns the claims the access token's scope releases for its subject.
func (s *Service) UserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	claims, err := s.verifier.Verify(ctx, accessToken, s.userInfoURL)
	if err != nil {
		return nil, err
	}
	sub, _ := claims["sub"].(string)
	scope, _ := claims["scope"].(string)
	user, err := s.getUser(ctx, sub)
	if err != nil {
		return nil, err
	}
	return ProjectClaims(user, strings.Fields(scope)).UserInfo, nil
}

func (s *Service) getUser(ctx context.Context, id string) (*users.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound(apperrors.CodeInvalidUser, "user not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to read user")
	}
	return user, nil
}

// Revoke deletes a refresh token on behalf of the client it was issued to.
// Tokens that are unknown or malformed are treated as already revoked.
func (s *Service) Revoke(ctx context.Context, req *oauth2.TokenRequest, refreshToken string) error {
	ownerID, err := s.refresh.ClientIDFor(ctx, refreshToken)
	if apperrors.IsCode(err, apperrors.CodeInvalidRefreshToken) {
		return nil
	}
	if err != nil {
		return err
	}
	owner, err := s.getClient(ctx, ownerID)
	if err != nil {
		return err
	}
	client, err := s.authenticateClient(ctx, req, owner)
	if err != nil {
		return err
	}
	if client.ID != owner.ID {
		return apperrors.Unauthorized(apperrors.CodeInvalidRefreshTokenForClient, "refresh token was not issued to this client")
	}
	return s.refresh.Revoke(ctx, refreshToken)
}
