package sessions

import (
	"net/http"
	"time"
)

// Cookie describes the session cookie for the HTTP layer to set.
type Cookie struct {
	Name       string
	Value      string
	Attributes CookieAttributes
}

type CookieAttributes struct {
	Path     string
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
	Expires  time.Time
	MaxAge   int
}

func (c *Cookie) HTTPCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Attributes.Path,
		HttpOnly: c.Attributes.HTTPOnly,
		Secure:   c.Attributes.Secure,
		SameSite: c.Attributes.SameSite,
		Expires:  c.Attributes.Expires,
		MaxAge:   c.Attributes.MaxAge,
	}
}
