package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func testConfig(apiURL string) Config {
	return Config{
		APIURL:       strings.TrimRight(apiURL, "/"),
		APIToken:     "api-token",
		ClientID:     "server-alice",
		ClientSecret: "secret",
		CallbackURL:  "http://server/oauth_callback",
		LoginURL:     apiURL + "/oauth2/authorize",
		AccessScopes: []string{"access:servers"},
		Timeout:      2 * time.Second,
	}
}

func TestExchangeCode(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = r.ParseForm()
		gotForm = r.PostForm
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil, nil)
	token, err := c.ExchangeCode(context.Background(), "code-1")
	if err != nil {
		t.Fatal(err)
	}
	if token != "tok-123" {
		t.Fatalf("token = %q", token)
	}
	if gotForm.Get("grant_type") != "authorization_code" || gotForm.Get("code") != "code-1" {
		t.Fatalf("form = %v", gotForm)
	}
	if gotForm.Get("client_id") != "server-alice" || gotForm.Get("redirect_uri") != "http://server/oauth_callback" {
		t.Fatalf("client registration not carried: %v", gotForm)
	}
}

func TestExchangeCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad code", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil, nil)
	if _, err := c.ExchangeCode(context.Background(), "bad"); !errors.Is(err, ErrCodeExchange) {
		t.Fatalf("expected ErrCodeExchange, got %v", err)
	}
}

func TestExchangeCodeHubDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(testConfig(srv.URL), nil, nil)
	if _, err := c.ExchangeCode(context.Background(), "code"); !errors.Is(err, ErrHubUnavailable) {
		t.Fatalf("expected ErrHubUnavailable, got %v", err)
	}
}

func TestResolveToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token tok-123" {
			t.Errorf("authorization header = %q", got)
		}
		if r.URL.Query().Get("no_cache") != "1" {
			t.Error("hub-side cache must be bypassed on every resolution")
		}
		_ = json.NewEncoder(w).Encode(Identity{
			Name:   "alice",
			Scopes: []string{"access:servers"},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil, nil)
	id, err := c.ResolveToken(context.Background(), "tok-123")
	if err != nil {
		t.Fatal(err)
	}
	if id == nil || id.Name != "alice" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestResolveTokenRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		c := NewClient(testConfig(srv.URL), nil, nil)
		id, err := c.ResolveToken(context.Background(), "revoked")
		if err != nil {
			t.Fatalf("status %d: hub saying no is not an error, got %v", status, err)
		}
		if id != nil {
			t.Fatalf("status %d: identity = %+v, want nil", status, id)
		}
		srv.Close()
	}
}

func TestResolveTokenHubError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil, nil)
	if _, err := c.ResolveToken(context.Background(), "tok"); !errors.Is(err, ErrHubUnavailable) {
		t.Fatalf("expected ErrHubUnavailable, got %v", err)
	}
}

func TestCheckScopes(t *testing.T) {
	c := NewClient(testConfig("http://hub"), nil, nil)

	if c.CheckScopes(nil) {
		t.Fatal("nil identity must not pass")
	}
	if c.CheckScopes(&Identity{Scopes: []string{"read:users"}}) {
		t.Fatal("unrelated scope must not pass")
	}
	if !c.CheckScopes(&Identity{Scopes: []string{"access:servers"}}) {
		t.Fatal("exact scope must pass")
	}

	cfg := testConfig("http://hub")
	cfg.AccessScopes = []string{"access:servers!server=alice/lab"}
	c = NewClient(cfg, nil, nil)
	if !c.CheckScopes(&Identity{Scopes: []string{"access:servers"}}) {
		t.Fatal("broader held scope must satisfy a filtered requirement")
	}
}

func TestLoginURL(t *testing.T) {
	c := NewClient(testConfig("http://hub/api"), nil, nil)
	raw := c.LoginURL("abc123")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("state") != "abc123" || q.Get("response_type") != "code" {
		t.Fatalf("query = %v", q)
	}
	if q.Get("client_id") != "server-alice" {
		t.Fatalf("client_id = %q", q.Get("client_id"))
	}
}
