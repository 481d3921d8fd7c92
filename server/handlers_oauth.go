package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-oidc-provider/auth"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/oauth2"
	"github.com/jrsteele09/go-oidc-provider/sessions"
)

// RedirectResponse is returned instead of a 302 to callers that ask for JSON.
type RedirectResponse struct {
	RedirectTo string `json:"redirect_to"`
}

// AuthorizationHandler validates the client's request and sends the browser to the login page.
func (s *Server) AuthorizationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := oauth2.ParseAuthorizationParameters(r.URL.Query())

		var loginURL string
		err := s.authorization.Authorize(r.Context(), params, func(query url.Values) {
			loginURL = withQuery(s.config.GetLoginPageURL(), query)
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		http.Redirect(w, r, loginURL, http.StatusFound)
	}
}

// LoginHandler checks the posted credentials, opens a session and forwards to the consent page.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.writeError(w, r, apperrors.BadRequest(apperrors.CodeInvalidRequest, "failed to parse form data"))
			return
		}
		ctx := r.Context()
		params := oauth2.ParseAuthorizationParameters(r.Form)
		if _, err := s.authorization.ValidateRequest(ctx, params); err != nil {
			s.writeError(w, r, err)
			return
		}

		user, err := s.authentication.GetUser(ctx, auth.Credentials{
			Email:    r.PostForm.Get("email"),
			Password: r.PostForm.Get("password"),
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		cookie, err := s.authentication.AuthenticateUser(ctx, user, sessions.Attributes{
			ClientID:  params.ClientID,
			UserAgent: r.UserAgent(),
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		http.SetCookie(w, cookie.HTTPCookie())

		redirect(w, r, withQuery(s.config.GetConsentPageURL(), params.Values()))
	}
}

// AuthenticationDetailsHandler tells the consent page who is signed in and for which client.
func (s *Server) AuthenticationDetailsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.session(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		details, err := s.authentication.GetAuthenticationDetails(r.Context(), session)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, details)
	}
}

// AuthorizeHandler issues the authorization code once the user has consented.
func (s *Server) AuthorizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.writeError(w, r, apperrors.BadRequest(apperrors.CodeInvalidRequest, "failed to parse form data"))
			return
		}
		session, err := s.session(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := r.Context()
		params := oauth2.ParseAuthorizationParameters(r.Form)
		if _, err := s.authorization.ValidateRequest(ctx, params); err != nil {
			s.writeError(w, r, err)
			return
		}
		resp, err := s.authentication.CompleteAuthorization(ctx, session, params)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, resp)
	}
}

// LogoutHandler ends the session and clears its cookie. It succeeds without a session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(s.sessions.CookieName()); err == nil && c.Value != "" {
			if err := s.sessions.Invalidate(r.Context(), c.Value); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		http.SetCookie(w, s.sessions.BlankCookie().HTTPCookie())
		w.WriteHeader(http.StatusNoContent)
	}
}

// session resolves the request's session cookie, reissuing the cookie when the
// session was extended.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*sessions.Session, error) {
	var id string
	if c, err := r.Cookie(s.sessions.CookieName()); err == nil {
		id = c.Value
	}
	session, err := s.authentication.ValidSession(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if session.Fresh {
		http.SetCookie(w, s.sessions.Cookie(session).HTTPCookie())
	}
	return session, nil
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, r, http.StatusOK, RedirectResponse{RedirectTo: to})
		return
	}
	http.Redirect(w, r, to, http.StatusFound)
}

// withQuery appends query to base, keeping any query base already has.
func withQuery(base string, query url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + query.Encode()
	}
	merged := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	u.RawQuery = merged.Encode()
	return u.String()
}
