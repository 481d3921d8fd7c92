// Package auth runs the interactive half of the authorization code flow:
// validating the client's request, signing the user in and issuing the code.
package auth

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/jrsteele09/go-oidc-provider/cache"
	"github.com/jrsteele09/go-oidc-provider/clients"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/internal/utils"
	"github.com/jrsteele09/go-oidc-provider/oauth2"
	"github.com/rs/zerolog/log"
)

const (
	statePrefix      = "stq_"
	opaqueTokenBytes = 32
	defaultStateTTL  = 15 * time.Minute
)

// AuthorizationService validates authorization requests and hands the browser to the login page.
type AuthorizationService struct {
	clients  clients.Repo
	cache    *cache.Cache
	stateTTL time.Duration
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

func WithStateTTL(ttl time.Duration) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.stateTTL = ttl
	}
}

func NewAuthorizationService(clientRepo clients.Repo, c *cache.Cache, options ...AuthorizationServiceOption) (*AuthorizationService, error) {
	if clientRepo == nil {
		return nil, errors.New("[NewAuthorizationService] Clients repo is required")
	}
	if c == nil {
		return nil, errors.New("[NewAuthorizationService] cache is required")
	}
	as := &AuthorizationService{
		clients:  clientRepo,
		cache:    c,
		stateTTL: defaultStateTTL,
	}
	for _, opt := range options {
		opt(as)
	}
	return as, nil
}

// ValidateRequest checks the request against the provider and the registered client,
// in order: client, scope, redirect URI, response type, PKCE method.
func (as *AuthorizationService) ValidateRequest(ctx context.Context, p *oauth2.AuthorizationParameters) (*clients.Client, error) {
	client, err := as.clients.Get(ctx, p.ClientID)
	if errors.Is(err, apperrors.ErrNotFound) || (err == nil && !client.Active) {
		return nil, apperrors.NotFound(apperrors.CodeInvalidClient, "unknown client")
	}
	if err != nil {
		return nil, apperrors.Internal(err, apperrors.CodeFailedQuery, "failed to read client")
	}

	for _, scope := range p.Scopes() {
		if !oauth2.IsSupportedScope(scope) || !client.HasScope(scope) {
			return nil, apperrors.BadRequest(apperrors.CodeInvalidScope, "scope not allowed: "+scope)
		}
	}

	redirect, err := url.Parse(p.RedirectURI)
	if err != nil || !redirect.IsAbs() || redirect.Host == "" || !client.HasRedirectURI(p.RedirectURI) {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRedirectURI, "redirect_uri is not registered for this client")
	}
	if redirect.Scheme != "https" {
		log.Warn().Str("client_id", client.ID).Str("redirect_uri", p.RedirectURI).Msg("redirect uri is not https")
	}

	if !oauth2.IsSupportedResponseType(p.ResponseType) || !client.AllowsResponseType(string(p.ResponseType)) {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidResponseType, "response_type not allowed")
	}

	if p.CodeChallenge != "" && !oauth2.IsSupportedCodeMethod(p.CodeChallengeMethod) {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidCodeChallenge, "code_challenge_method must be S256 or plain")
	}
	return client, nil
}

// Authorize validates the request and calls loginRedirect with the query to hand to the
// login page. A client supplied state is swapped for an opaque token kept in the cache.
func (as *AuthorizationService) Authorize(ctx context.Context, p *oauth2.AuthorizationParameters, loginRedirect func(query url.Values)) error {
	if _, err := as.ValidateRequest(ctx, p); err != nil {
		return err
	}

	forward := *p
	if p.State != "" {
		opaque, err := as.storeState(ctx, p.State)
		if err != nil {
			return err
		}
		forward.State = opaque
	}
	loginRedirect(forward.Values())
	return nil
}

func (as *AuthorizationService) storeState(ctx context.Context, state string) (string, error) {
	token, err := utils.RandomToken(opaqueTokenBytes)
	if err != nil {
		return "", apperrors.Internal(err, apperrors.CodeInternal, "failed to generate state")
	}
	key := statePrefix + token
	if err := as.cache.Store().Set(ctx, key, state, as.stateTTL); err != nil {
		return "", apperrors.Internal(err, apperrors.CodeRedisSetFailed, "failed to store state")
	}
	return key, nil
}
