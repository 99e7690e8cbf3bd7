package hub

import (
	"os"
	"strings"
	"time"
)

// Config defines everything needed to talk to the hub. In hub-managed
// deployments these values are injected into the environment by the hub
// itself when it spawns the server.
type Config struct {
	// APIURL is the base URL of the hub's REST API, e.g. "http://hub:8081/hub/api".
	APIURL string

	// APIToken authenticates this server to the hub (activity reports,
	// server-to-server calls).
	APIToken string

	// OAuth client credentials registered with the hub for this server.
	ClientID     string
	ClientSecret string

	// CallbackURL is the redirect URI the hub sends browsers back to after
	// login; it must match the registration.
	CallbackURL string

	// LoginURL is the hub's browser-facing authorize endpoint. Defaults to
	// APIURL's "/oauth2/authorize".
	LoginURL string

	// AccessScopes are the scopes a user must hold to access this server.
	AccessScopes []string

	// Timeout bounds every hub round-trip. A hung hub call blocks only the
	// requesting task, but it should still fail within a deadline.
	Timeout time.Duration
}

// LoadConfigFromEnv loads hub configuration from environment variables.
//
// Required:
//   - HUBGATE_HUB_API_URL
//   - HUBGATE_HUB_API_TOKEN
//   - HUBGATE_OAUTH_CLIENT_ID
//   - HUBGATE_OAUTH_CLIENT_SECRET
//   - HUBGATE_OAUTH_CALLBACK_URL
//
// Optional:
//   - HUBGATE_HUB_LOGIN_URL
//   - HUBGATE_ACCESS_SCOPES (comma-separated, default "access:servers")
//   - HUBGATE_HUB_TIMEOUT (Go duration, default 10s)
//
// Returns ErrConfig if a required value is missing or a duration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		APIURL:       strings.TrimSpace(os.Getenv("HUBGATE_HUB_API_URL")),
		APIToken:     strings.TrimSpace(os.Getenv("HUBGATE_HUB_API_TOKEN")),
		ClientID:     strings.TrimSpace(os.Getenv("HUBGATE_OAUTH_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv("HUBGATE_OAUTH_CLIENT_SECRET")),
		CallbackURL:  strings.TrimSpace(os.Getenv("HUBGATE_OAUTH_CALLBACK_URL")),
		LoginURL:     strings.TrimSpace(os.Getenv("HUBGATE_HUB_LOGIN_URL")),
		AccessScopes: []string{"access:servers"},
		Timeout:      10 * time.Second,
	}

	if cfg.APIURL == "" || cfg.APIToken == "" || cfg.ClientID == "" ||
		cfg.ClientSecret == "" || cfg.CallbackURL == "" {
		return Config{}, ErrConfig
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if cfg.LoginURL == "" {
		cfg.LoginURL = cfg.APIURL + "/oauth2/authorize"
	}

	if v := os.Getenv("HUBGATE_ACCESS_SCOPES"); strings.TrimSpace(v) != "" {
		var scopes []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
		if len(scopes) == 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessScopes = scopes
	}

	if v := os.Getenv("HUBGATE_HUB_TIMEOUT"); strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.Timeout = d
	}

	return cfg, nil
}
