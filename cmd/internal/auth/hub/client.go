package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"hubgate/cmd/internal/metrics"
)

// Identity is the hub's view of a token's owner.
type Identity struct {
	Name   string   `json:"name"`
	Admin  bool     `json:"admin"`
	Scopes []string `json:"scopes"`
	Groups []string `json:"groups"`
}

// Client performs hub round-trips over a pooled HTTP client.
type Client struct {
	cfg     Config
	http    *http.Client
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewClient constructs a hub client. The HTTP client carries the configured
// per-call timeout so no hub call can hang a request forever.
func NewClient(cfg Config, log *slog.Logger, m *metrics.Metrics) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
		metrics: m,
	}
}

// ExchangeCode trades an OAuth authorization code for a session token.
//
// A hub-side rejection (the code is unknown, expired, or already used)
// returns ErrCodeExchange; a transport failure returns ErrHubUnavailable.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"redirect_uri":  {c.cfg.CallbackURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.APIURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.IncHubRequest("exchange_code", "error")
		return "", fmt.Errorf("%w: %v", ErrHubUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.metrics.IncHubRequest("exchange_code", "rejected")
		c.log.Warn("hub.exchange_code.rejected", "status", resp.StatusCode)
		return "", fmt.Errorf("%w: hub returned %d", ErrCodeExchange, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.metrics.IncHubRequest("exchange_code", "error")
		return "", fmt.Errorf("%w: decoding token response: %v", ErrHubUnavailable, err)
	}
	if body.AccessToken == "" {
		c.metrics.IncHubRequest("exchange_code", "rejected")
		return "", fmt.Errorf("%w: empty access_token", ErrCodeExchange)
	}

	c.metrics.IncHubRequest("exchange_code", "ok")
	return body.AccessToken, nil
}

// ResolveToken asks the hub who owns token. It returns (nil, nil) when the
// hub rejects the token ("hub says no") and an ErrHubUnavailable-wrapped
// error when the hub cannot answer; callers that need to collapse the two
// may, but the distinction is preserved here and in the logs.
//
// Hub-side caching is always bypassed so revocation takes effect on the
// next request.
func (c *Client) ResolveToken(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.APIURL+"/user?no_cache=1", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "token "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.IncHubRequest("resolve_token", "error")
		return nil, fmt.Errorf("%w: %v", ErrHubUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		c.metrics.IncHubRequest("resolve_token", "rejected")
		return nil, nil
	default:
		c.metrics.IncHubRequest("resolve_token", "error")
		return nil, fmt.Errorf("%w: hub returned %d", ErrHubUnavailable, resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		c.metrics.IncHubRequest("resolve_token", "error")
		return nil, fmt.Errorf("%w: decoding identity: %v", ErrHubUnavailable, err)
	}

	c.metrics.IncHubRequest("resolve_token", "ok")
	return &id, nil
}

// CheckScopes reports whether the identity holds at least one of the
// configured access scopes.
func (c *Client) CheckScopes(id *Identity) bool {
	if id == nil {
		return false
	}
	for _, required := range c.cfg.AccessScopes {
		for _, held := range id.Scopes {
			if scopeSatisfies(held, required) {
				return true
			}
		}
	}
	return false
}

// scopeSatisfies treats a held scope as satisfying a required one when they
// match exactly or when the held scope is the required scope's broader form
// (required "access:servers!server=alice/lab" is covered by held
// "access:servers").
func scopeSatisfies(held, required string) bool {
	if held == required {
		return true
	}
	if base, _, ok := strings.Cut(required, "!"); ok && held == base {
		return true
	}
	return false
}

// LoginURL builds the browser-facing hub login URL carrying state.
func (c *Client) LoginURL(state string) string {
	q := url.Values{
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {c.cfg.CallbackURL},
		"response_type": {"code"},
		"state":         {state},
	}
	return c.cfg.LoginURL + "?" + q.Encode()
}

// APIToken exposes the server's hub credential for collaborators that post
// to the hub directly (activity reports).
func (c *Client) APIToken() string { return c.cfg.APIToken }

// CloseIdleConnections releases pooled connections on shutdown.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<16))
	_ = body.Close()
}
