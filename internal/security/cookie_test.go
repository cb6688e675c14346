package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewCookieManagerSameSiteMapping(t *testing.T) {
	if got := NewCookieManager("", true, "strict").SameSite; got != http.SameSiteStrictMode {
		t.Fatalf("strict mapping mismatch: %v", got)
	}
	if got := NewCookieManager("", true, "none").SameSite; got != http.SameSiteNoneMode {
		t.Fatalf("none mapping mismatch: %v", got)
	}
	if got := NewCookieManager("", true, "unexpected").SameSite; got != http.SameSiteLaxMode {
		t.Fatalf("default mapping mismatch: %v", got)
	}
}

func TestSetTokenCookiesFlagsAndLifetimes(t *testing.T) {
	mgr := NewCookieManager("soukly.dev", true, "strict")
	rr := httptest.NewRecorder()
	mgr.SetTokenCookies(rr, "a", "r", time.Hour, 7*24*time.Hour)

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	access := byName[AccessTokenCookie]
	if access == nil || access.Path != "/" || !access.HttpOnly || !access.Secure || access.Domain != "soukly.dev" {
		t.Fatalf("unexpected access cookie: %#v", access)
	}
	if access.MaxAge != 3600 {
		t.Fatalf("expected 1h access max-age, got %d", access.MaxAge)
	}
	if access.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected access same-site: %v", access.SameSite)
	}

	refresh := byName[RefreshTokenCookie]
	if refresh == nil || refresh.Path != "/api/v1/auth" || !refresh.HttpOnly || !refresh.Secure {
		t.Fatalf("unexpected refresh cookie: %#v", refresh)
	}
	if refresh.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Fatalf("expected 7d refresh max-age, got %d", refresh.MaxAge)
	}
}

func TestSetTokenCookiesOmitsRefreshWhenEmpty(t *testing.T) {
	mgr := NewCookieManager("", false, "lax")
	rr := httptest.NewRecorder()
	mgr.SetTokenCookies(rr, "a", "", time.Hour, 7*24*time.Hour)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != AccessTokenCookie {
		t.Fatalf("expected only the access cookie, got %v", cookies)
	}
}

func TestClearTokenCookies(t *testing.T) {
	mgr := NewCookieManager("", false, "lax")
	rr := httptest.NewRecorder()
	mgr.ClearTokenCookies(rr)

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cleared cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if c.MaxAge != -1 || c.Value != "" {
			t.Fatalf("cookie %q not cleared: value=%q max_age=%d", c.Name, c.Value, c.MaxAge)
		}
	}
}

func TestGetCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "x"})

	if got := GetCookie(req, AccessTokenCookie); got != "x" {
		t.Fatalf("unexpected cookie value %q", got)
	}
	if got := GetCookie(req, "missing"); got != "" {
		t.Fatalf("expected empty value for missing cookie, got %q", got)
	}
}
