package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Config controls the HTTP auth surface: cookie naming and attributes.
type Config struct {
	// CookieName is the session cookie's name; its value is the raw hub
	// token with no additional encoding.
	CookieName string

	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

// LoadConfigFromEnv loads auth API configuration with defaults suitable for
// a hub-fronted deployment (the hub terminates TLS in front of us).
//
// Optional:
//   - HUBGATE_COOKIE_NAME (default "hubgate_token")
//   - HUBGATE_COOKIE_SECURE (bool, default false)
//   - HUBGATE_COOKIE_SAMESITE (lax|strict|none, default lax)
func LoadConfigFromEnv() Config {
	cfg := Config{
		CookieName:     "hubgate_token",
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
	}

	if v := strings.TrimSpace(os.Getenv("HUBGATE_COOKIE_NAME")); v != "" {
		cfg.CookieName = v
	}
	if b, err := strconv.ParseBool(os.Getenv("HUBGATE_COOKIE_SECURE")); err == nil {
		cfg.CookieSecure = b
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("HUBGATE_COOKIE_SAMESITE"))) {
	case "strict":
		cfg.CookieSameSite = http.SameSiteStrictMode
	case "none":
		cfg.CookieSameSite = http.SameSiteNoneMode
	}

	return cfg
}
