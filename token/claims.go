package token

import (
	"sort"

	"github.com/jrsteele09/go-oidc-provider/oauth2"
	"github.com/jrsteele09/go-oidc-provider/users"
)

// claim reads one standard claim from a user. ok is false when the user has no value.
type claim struct {
	name      string
	inIDToken bool
	extract   func(u *users.User) (value any, ok bool)
}

func stringClaim(name string, inIDToken bool, get func(u *users.User) string) claim {
	return claim{name: name, inIDToken: inIDToken, extract: func(u *users.User) (any, bool) {
		v := get(u)
		return v, v != ""
	}}
}

// scopeClaims maps each scope to the claims it releases, in order.
var scopeClaims = map[string][]claim{
	oauth2.ScopeProfile: {
		stringClaim("name", true, func(u *users.User) string { return u.Name }),
		stringClaim("given_name", false, func(u *users.User) string { return u.GivenName }),
		stringClaim("family_name", false, func(u *users.User) string { return u.FamilyName }),
		stringClaim("middle_name", false, func(u *users.User) string { return u.MiddleName }),
		stringClaim("nickname", false, func(u *users.User) string { return u.Nickname }),
		stringClaim("preferred_username", true, func(u *users.User) string { return u.PreferredUsername }),
		stringClaim("profile", false, func(u *users.User) string { return u.Profile }),
		stringClaim("picture", true, func(u *users.User) string { return u.Picture }),
		stringClaim("website", false, func(u *users.User) string { return u.Website }),
		stringClaim("gender", false, func(u *users.User) string { return u.Gender }),
		stringClaim("birthdate", false, func(u *users.User) string { return u.Birthdate }),
		stringClaim("zoneinfo", false, func(u *users.User) string { return u.Zoneinfo }),
		stringClaim("locale", false, func(u *users.User) string { return u.Locale }),
		{name: "updated_at", extract: func(u *users.User) (any, bool) {
			return u.UpdatedAt.Unix(), !u.UpdatedAt.IsZero()
		}},
	},
	oauth2.ScopeEmail: {
		stringClaim("email", true, func(u *users.User) string { return u.Email }),
		{name: "email_verified", inIDToken: true, extract: func(u *users.User) (any, bool) {
			return u.EmailVerified, u.Email != ""
		}},
	},
	oauth2.ScopePhone: {
		stringClaim("phone_number", false, func(u *users.User) string { return u.PhoneNumber }),
		{name: "phone_number_verified", extract: func(u *users.User) (any, bool) {
			return u.PhoneNumberVerified, u.PhoneNumber != ""
		}},
	},
	oauth2.ScopeAddress: {
		{name: "address", extract: func(u *users.User) (any, bool) {
			if u.Address == nil {
				return nil, false
			}
			return *u.Address, true
		}},
	},
}

// ClaimSets are the claims released for a scope set, split by destination.
type ClaimSets struct {
	IDToken  map[string]any
	UserInfo map[string]any
}

// ProjectClaims applies the scope table to user. Unknown scopes release nothing.
func ProjectClaims(user *users.User, scopes []string) ClaimSets {
	sets := ClaimSets{
		IDToken:  map[string]any{},
		UserInfo: map[string]any{"sub": user.ID},
	}
	for _, scope := range scopes {
		for _, c := range scopeClaims[scope] {
			v, ok := c.extract(user)
			if !ok {
				continue
			}
			sets.UserInfo[c.name] = v
			if c.inIDToken {
				sets.IDToken[c.name] = v
			}
		}
	}
	return sets
}

// SupportedClaims lists every claim the table can release, for discovery.
func SupportedClaims() []string {
	names := []string{"sub", "iss", "aud", "exp", "iat", "auth_time", "nonce"}
	for _, claims := range scopeClaims {
		for _, c := range claims {
			names = append(names, c.name)
		}
	}
	sort.Strings(names[7:])
	return names
}
