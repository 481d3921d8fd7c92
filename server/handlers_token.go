package server

import (
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/oauth2"
)

// TokenHandler exchanges an authorization code or refresh token for tokens.
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.writeError(w, r, apperrors.BadRequest(apperrors.CodeInvalidRequest, "failed to parse form data"))
			return
		}
		req := oauth2.ParseTokenRequest(r.PostForm, r.Header.Get("Authorization"))
		resp, err := s.tokens.Exchange(r.Context(), req)
		if err != nil {
			if apperrors.IsCode(err, apperrors.CodeInvalidClient) && req.AuthorizationHeader != "" {
				w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
			}
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, resp)
	}
}

// RevokeHandler revokes a refresh token (RFC 7009). Unknown tokens still get a 200.
func (s *Server) RevokeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.writeError(w, r, apperrors.BadRequest(apperrors.CodeInvalidRequest, "failed to parse form data"))
			return
		}
		token := r.PostForm.Get("token")
		if token == "" {
			s.writeError(w, r, apperrors.BadRequest(apperrors.CodeInvalidRequest, "token parameter is required"))
			return
		}
		req := oauth2.ParseTokenRequest(r.PostForm, r.Header.Get("Authorization"))
		if err := s.tokens.Revoke(r.Context(), req, token); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// UserInfoHandler returns the claims released by the bearer access token's scope.
func (s *Server) UserInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="userinfo"`)
			s.writeError(w, r, apperrors.Unauthorized(apperrors.CodeTokenMalformed, "bearer access token required"))
			return
		}
		claims, err := s.tokens.UserInfo(r.Context(), token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="userinfo", error="invalid_token"`)
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, claims)
	}
}

// bearerToken reads the Authorization header, or the access_token form field on POST (RFC 6750 2.2).
func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):]), true
	}
	if r.Method == http.MethodPost {
		if token := r.PostFormValue("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}
