package hub

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HUBGATE_HUB_API_URL", "http://hub:8081/hub/api/")
	t.Setenv("HUBGATE_HUB_API_TOKEN", "api-token")
	t.Setenv("HUBGATE_OAUTH_CLIENT_ID", "server-alice")
	t.Setenv("HUBGATE_OAUTH_CLIENT_SECRET", "secret")
	t.Setenv("HUBGATE_OAUTH_CALLBACK_URL", "http://server/oauth_callback")
}

func TestLoadConfigFromEnv_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HUBGATE_HUB_API_TOKEN", "")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for missing api token, got %v", err)
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "http://hub:8081/hub/api" {
		t.Fatalf("api url not normalized: %q", cfg.APIURL)
	}
	if cfg.LoginURL != "http://hub:8081/hub/api/oauth2/authorize" {
		t.Fatalf("login url = %q", cfg.LoginURL)
	}
	if len(cfg.AccessScopes) != 1 || cfg.AccessScopes[0] != "access:servers" {
		t.Fatalf("scopes = %v", cfg.AccessScopes)
	}
	if cfg.Timeout != 10*time.Second {
		t.Fatalf("timeout = %v", cfg.Timeout)
	}
}

func TestLoadConfigFromEnv_ScopesCSV(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HUBGATE_ACCESS_SCOPES", "access:servers!server=alice/lab, read:users ")
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.AccessScopes) != 2 || cfg.AccessScopes[0] != "access:servers!server=alice/lab" {
		t.Fatalf("scopes = %v", cfg.AccessScopes)
	}
}

func TestLoadConfigFromEnv_InvalidTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HUBGATE_HUB_TIMEOUT", "-3s")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for negative timeout, got %v", err)
	}
}
