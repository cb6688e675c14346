package security

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	// Refresh tokens are only ever read by the auth routes.
	refreshCookiePath = "/api/v1/auth"
)

type CookieManager struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// NewCookieManager maps the configured same-site string onto a valid
// http.SameSite value; unrecognized input degrades to Lax rather than
// leaving the attribute unset.
func NewCookieManager(domain string, secure bool, sameSite string) *CookieManager {
	ss := http.SameSiteLaxMode
	switch sameSite {
	case "strict":
		ss = http.SameSiteStrictMode
	case "none":
		ss = http.SameSiteNoneMode
	}
	return &CookieManager{Domain: domain, Secure: secure, SameSite: ss}
}

// SetTokenCookies attaches the session pair. The refresh cookie is omitted
// entirely when no refresh token was minted.
func (m *CookieManager) SetTokenCookies(w http.ResponseWriter, access, refresh string, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    access,
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})
	if refresh == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refresh,
		Path:     refreshCookiePath,
		Domain:   m.Domain,
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})
}

func (m *CookieManager) ClearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    "",
		Path:     refreshCookiePath,
		Domain:   m.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	})
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
