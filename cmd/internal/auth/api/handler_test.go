package authapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubgate/cmd/internal/auth/hub"
	"hubgate/cmd/internal/auth/session"
)

// fakeHub is an in-process HubClient: a code maps to a token, a token maps
// to an identity.
type fakeHub struct {
	tokensByCode map[string]string
	identities   map[string]*hub.Identity
	exchangeErr  error
	resolveErr   error
	denyScopes   bool
}

func (f *fakeHub) ExchangeCode(_ context.Context, code string) (string, error) {
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	tok, ok := f.tokensByCode[code]
	if !ok {
		return "", hub.ErrCodeExchange
	}
	return tok, nil
}

func (f *fakeHub) ResolveToken(_ context.Context, token string) (*hub.Identity, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.identities[token], nil
}

func (f *fakeHub) CheckScopes(id *hub.Identity) bool {
	return id != nil && !f.denyScopes
}

func (f *fakeHub) LoginURL(state string) string {
	return "http://hub/login?state=" + state
}

type countingNotifier struct{ n atomic.Int64 }

func (c *countingNotifier) Report() { c.n.Add(1) }

func newTestHandler(t *testing.T, fh *fakeHub) (*Handler, *session.Store, *countingNotifier) {
	t.Helper()
	store := session.NewStore()
	notifier := &countingNotifier{}
	h := NewHandler(nil, LoadConfigFromEnv(), fh, store, notifier, nil)
	return h, store, notifier
}

func callbackRequest(t *testing.T, h *Handler, code, stateParam, stateCookie string) *httptest.ResponseRecorder {
	t.Helper()
	target := "/oauth_callback"
	if code != "" || stateParam != "" {
		target += "?code=" + code + "&state=" + stateParam
	}
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if stateCookie != "" {
		r.AddCookie(&http.Cookie{Name: hub.StateCookieName("hubgate_token"), Value: stateCookie})
	}
	w := httptest.NewRecorder()
	h.handleOAuthCallback(w, r)
	return w
}

func TestOAuthCallback(t *testing.T) {
	fh := &fakeHub{
		tokensByCode: map[string]string{"code-1": "tok-1"},
		identities:   map[string]*hub.Identity{"tok-1": {Name: "Alice Wonder"}},
	}
	h, store, _ := newTestHandler(t, fh)

	state, err := hub.NewState("http://server/lab/tree")
	require.NoError(t, err)

	w := callbackRequest(t, h, "code-1", state, state)

	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "http://server/lab/tree", w.Header().Get("Location"))

	// Exactly one record, keyed by the newly issued token.
	require.Equal(t, 1, store.Len())
	u, ok := store.Get("tok-1")
	require.True(t, ok)
	assert.Equal(t, "Alice Wonder", u.Username)
	assert.Equal(t, "AW", u.Initials)
	assert.False(t, u.Anonymous)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "hubgate_token" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "session cookie must be set")
	assert.Equal(t, "tok-1", sessionCookie.Value)
}

func TestOAuthCallbackMissingCode(t *testing.T) {
	h, store, _ := newTestHandler(t, &fakeHub{})

	w := callbackRequest(t, h, "", "", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, store.Len())
}

func TestOAuthCallbackStateMismatch(t *testing.T) {
	fh := &fakeHub{
		tokensByCode: map[string]string{"code-1": "tok-1"},
		identities:   map[string]*hub.Identity{"tok-1": {Name: "alice"}},
	}
	h, store, _ := newTestHandler(t, fh)

	good, _ := hub.NewState("/")
	evil, _ := hub.NewState("http://attacker/")

	for name, tc := range map[string]struct{ param, cookie string }{
		"absent state param": {"", good},
		"absent cookie":      {good, ""},
		"mismatch":           {evil, good},
	} {
		w := callbackRequest(t, h, "code-1", tc.param, tc.cookie)
		assert.Equal(t, http.StatusForbidden, w.Code, name)
		assert.Equal(t, 0, store.Len(), "store must be unchanged: %s", name)
	}
}

func TestOAuthCallbackExchangeFails(t *testing.T) {
	h, store, _ := newTestHandler(t, &fakeHub{exchangeErr: hub.ErrCodeExchange})

	state, _ := hub.NewState("/")
	w := callbackRequest(t, h, "bad-code", state, state)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, store.Len())
}

func TestOAuthCallbackHubUnreachable(t *testing.T) {
	h, store, _ := newTestHandler(t, &fakeHub{exchangeErr: hub.ErrHubUnavailable})

	state, _ := hub.NewState("/")
	w := callbackRequest(t, h, "code-1", state, state)

	// Unreachable collapses to the same user-visible forbidden outcome.
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, store.Len())
}

func TestOAuthCallbackNoIdentity(t *testing.T) {
	fh := &fakeHub{
		tokensByCode: map[string]string{"code-1": "tok-1"},
		identities:   map[string]*hub.Identity{}, // token resolves to nobody
	}
	h, store, _ := newTestHandler(t, fh)

	state, _ := hub.NewState("/")
	w := callbackRequest(t, h, "code-1", state, state)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "hub returned no user")
	assert.Equal(t, 0, store.Len())
}

func TestLogout(t *testing.T) {
	fh := &fakeHub{identities: map[string]*hub.Identity{"tok-1": {Name: "alice"}}}
	h, store, _ := newTestHandler(t, fh)
	store.Put(session.NewUser("tok-1", "alice"))

	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	r.AddCookie(&http.Cookie{Name: "hubgate_token", Value: "tok-1"})
	w := httptest.NewRecorder()
	h.handleLogout(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, store.Len())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "hubgate_token", cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0, "session cookie must be expired")
}

func TestParsePermissionsParam(t *testing.T) {
	got, err := parsePermissionsParam("")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = parsePermissionsParam(`{"contents": ["read"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, got["contents"])

	// Single-quoted JSON from older frontends.
	got, err = parsePermissionsParam(`{'contents': ['read', 'write']}`)
	require.NoError(t, err)
	assert.Len(t, got["contents"], 2)

	_, err = parsePermissionsParam(`not json`)
	require.Error(t, err)
}

func TestRespondAuthErrorUnknown(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeHub{})
	w := httptest.NewRecorder()
	h.respondAuthError(w, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
