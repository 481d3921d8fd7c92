// Package bootstrap prepares a fresh deployment: a current signing key and
// the clients and users listed in a seed file.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-oidc-provider/clients"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/oauth2"
	"github.com/jrsteele09/go-oidc-provider/users"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document read by Seed.
type SeedFile struct {
	Clients []SeedClient `yaml:"clients"`
	Users   []SeedUser   `yaml:"users"`
}

type SeedClient struct {
	ID                      string   `yaml:"id"`
	Name                    string   `yaml:"name"`
	Secret                  string   `yaml:"secret"`
	RedirectURIs            []string `yaml:"redirect_uris"`
	Scopes                  []string `yaml:"scopes"`
	ResponseTypes           []string `yaml:"response_types"`
	TokenEndpointAuthMethod string   `yaml:"token_endpoint_auth_method"`
}

type SeedUser struct {
	ID                  string         `yaml:"id"`
	Email               string         `yaml:"email"`
	Password            string         `yaml:"password"`
	Name                string         `yaml:"name"`
	GivenName           string         `yaml:"given_name"`
	FamilyName          string         `yaml:"family_name"`
	PreferredUsername   string         `yaml:"preferred_username"`
	Picture             string         `yaml:"picture"`
	EmailVerified       bool           `yaml:"email_verified"`
	PhoneNumber         string         `yaml:"phone_number"`
	PhoneNumberVerified bool           `yaml:"phone_number_verified"`
	Address             *users.Address `yaml:"address"`
}

// SeededClient reports a client written by Seed. Secret is only set when it was generated.
type SeededClient struct {
	ID     string
	Secret string
}

type Result struct {
	Clients []SeededClient
	Users   []string
}

// LoadSeedFile parses a seed file from disk.
func LoadSeedFile(path string) (*SeedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

func ParseSeed(r io.Reader) (*SeedFile, error) {
	var seed SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &seed, nil
}

// Seed upserts every client and user. Clients without an id or secret get generated
// ones, which are returned so they can be shown once.
func Seed(ctx context.Context, seed *SeedFile, clientRepo clients.Repo, userRepo users.Repo) (*Result, error) {
	result := &Result{}
	for i, sc := range seed.Clients {
		seeded, err := seedClient(ctx, sc, clientRepo)
		if err != nil {
			return nil, fmt.Errorf("[Seed] client %d: %w", i, err)
		}
		result.Clients = append(result.Clients, *seeded)
	}
	for i, su := range seed.Users {
		id, err := seedUser(ctx, su, userRepo)
		if err != nil {
			return nil, fmt.Errorf("[Seed] user %d: %w", i, err)
		}
		result.Users = append(result.Users, id)
	}
	return result, nil
}

func seedClient(ctx context.Context, sc SeedClient, repo clients.Repo) (*SeededClient, error) {
	if len(sc.RedirectURIs) == 0 {
		return nil, errors.New("at least one redirect uri is required")
	}
	for _, scope := range sc.Scopes {
		if !oauth2.IsSupportedScope(scope) {
			return nil, fmt.Errorf("unsupported scope %q", scope)
		}
	}
	method := clients.AuthMethod(sc.TokenEndpointAuthMethod)
	switch method {
	case "", clients.AuthMethodClientSecretBasic, clients.AuthMethodClientSecretPost:
	default:
		return nil, fmt.Errorf("unsupported token endpoint auth method %q", method)
	}

	seeded := &SeededClient{ID: sc.ID}
	if seeded.ID == "" {
		id, err := clients.NewClientID()
		if err != nil {
			return nil, err
		}
		seeded.ID = id
	}
	secret := sc.Secret
	if secret == "" {
		generated, err := clients.GenerateSecret()
		if err != nil {
			return nil, err
		}
		secret, seeded.Secret = generated, generated
	}

	scopes := sc.Scopes
	if len(scopes) == 0 {
		scopes = []string{oauth2.ScopeOpenID}
	}
	responseTypes := sc.ResponseTypes
	if len(responseTypes) == 0 {
		responseTypes = []string{string(oauth2.CodeResponseType)}
	}
	client := &clients.Client{
		ID:                      seeded.ID,
		Name:                    sc.Name,
		RedirectURIs:            sc.RedirectURIs,
		Scopes:                  scopes,
		ResponseTypes:           responseTypes,
		TokenEndpointAuthMethod: method,
		Active:                  true,
	}
	if err := client.SetSecret(secret); err != nil {
		return nil, err
	}
	if err := repo.Upsert(ctx, client); err != nil {
		return nil, err
	}
	for _, uri := range client.RedirectURIs {
		if !strings.HasPrefix(uri, "https://") {
			log.Warn().Str("client_id", client.ID).Str("redirect_uri", uri).Msg("seeded client has a non https redirect uri")
		}
	}
	return seeded, nil
}

func seedUser(ctx context.Context, su SeedUser, repo users.Repo) (string, error) {
	if su.Email == "" {
		return "", errors.New("email is required")
	}
	if err := users.ValidatePasswordStrength(su.Password); err != nil {
		return "", fmt.Errorf("%s: %w", su.Email, err)
	}

	id := su.ID
	if id == "" {
		existing, err := repo.GetByEmail(ctx, su.Email)
		switch {
		case err == nil:
			id = existing.ID
		case errors.Is(err, apperrors.ErrNotFound):
			id = uuid.NewString()
		default:
			return "", err
		}
	}

	hash, err := users.HashPassword(su.Password)
	if err != nil {
		return "", err
	}
	user := &users.User{
		ID:                  id,
		Email:               su.Email,
		PasswordHash:        hash,
		Name:                su.Name,
		GivenName:           su.GivenName,
		FamilyName:          su.FamilyName,
		PreferredUsername:   su.PreferredUsername,
		Picture:             su.Picture,
		EmailVerified:       su.EmailVerified,
		PhoneNumber:         su.PhoneNumber,
		PhoneNumberVerified: su.PhoneNumberVerified,
		Address:             su.Address,
	}
	if err := repo.Upsert(ctx, user); err != nil {
		return "", err
	}
	return id, nil
}
