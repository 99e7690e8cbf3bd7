// Package authapi wires the hub-delegated auth flow onto HTTP: the OAuth
// callback, the current-user gate, /api/me, and logout.
package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"hubgate/cmd/internal/auth/hub"
	"hubgate/cmd/internal/auth/session"
	"hubgate/cmd/internal/metrics"
)

// HubClient is the subset of the hub client this handler needs. It exists
// so tests can stand in a fake hub without a network.
type HubClient interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	ResolveToken(ctx context.Context, token string) (*hub.Identity, error)
	CheckScopes(id *hub.Identity) bool
	LoginURL(state string) string
}

// ActivityNotifier schedules a fire-and-forget activity heartbeat.
type ActivityNotifier interface {
	Report()
}

type noopNotifier struct{}

func (noopNotifier) Report() {}

// Handler serves the auth endpoints and owns the per-request user gate.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	hub      HubClient
	store    *session.Store
	activity ActivityNotifier
	metrics  *metrics.Metrics
}

// NewHandler constructs the auth handler. activity may be nil when no
// activity endpoint is configured.
func NewHandler(log *slog.Logger, cfg Config, hubClient HubClient, store *session.Store, activity ActivityNotifier, m *metrics.Metrics) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if activity == nil {
		activity = noopNotifier{}
	}
	return &Handler{
		log:      log,
		cfg:      cfg,
		hub:      hubClient,
		store:    store,
		activity: activity,
		metrics:  m,
	}
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/oauth_callback", h.handleOAuthCallback)
	mux.HandleFunc("/api/me", h.handleMe)
	mux.HandleFunc("/logout", h.handleLogout)
}

// Store exposes the session store for collaborators (the WS gateway).
func (h *Handler) Store() *session.Store { return h.store }

// handleOAuthCallback completes the login round-trip: it validates the CSRF
// state, exchanges the code, resolves the new token to an identity, caches
// the user record, and sends the browser back where it started.
//
// There are no retries here: any hub failure is terminal for this attempt
// and the user restarts login by following the next redirect.
func (h *Handler) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusForbidden, "forbidden", "missing oauth code")
		return
	}

	state := r.URL.Query().Get("state")
	cookieState := ""
	if c, err := r.Cookie(hub.StateCookieName(h.cfg.CookieName)); err == nil {
		cookieState = c.Value
	}
	if state == "" || state != cookieState {
		h.log.Warn("auth.callback.state_mismatch", "remote", r.RemoteAddr)
		writeError(w, http.StatusForbidden, "forbidden", "oauth state mismatch")
		return
	}

	token, err := h.hub.ExchangeCode(r.Context(), code)
	if err != nil {
		h.log.Warn("auth.callback.exchange_fail", "err", err)
		writeError(w, http.StatusForbidden, "forbidden", "oauth code exchange failed")
		return
	}

	identity, err := h.hub.ResolveToken(r.Context(), token)
	if err != nil {
		h.log.Warn("auth.callback.resolve_fail", "err", err)
		writeError(w, http.StatusForbidden, "forbidden", "failed to resolve user from hub")
		return
	}
	if identity == nil {
		writeError(w, http.StatusForbidden, "forbidden", "hub returned no user for the new token")
		return
	}

	h.store.Put(session.NewUser(token, identity.Name))
	h.metrics.IncSessionCreated()
	h.log.Info("auth.callback.ok", "username", identity.Name)

	http.SetCookie(w, h.sessionCookie(token))
	h.expireCookie(w, hub.StateCookieName(h.cfg.CookieName))
	http.Redirect(w, r, hub.NextURL(state), http.StatusTemporaryRedirect)
}

// handleMe reports the resolved identity and the subset of the requested
// permissions the user actually holds.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, err := h.CurrentUser(r, nil)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	requested, err := parsePermissionsParam(r.URL.Query().Get("permissions"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_permissions", "permissions must be a JSON map of resource to actions")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		Identity:    toIdentityResponse(user),
		Permissions: user.CheckPermissions(requested),
	})
}

// handleLogout evicts the local record and clears the session cookie. The
// hub token itself stays valid; the hub owns its lifecycle.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if token, ok := h.tokenFromCookie(r); ok {
		h.store.Delete(token)
	}
	h.expireCookie(w, h.cfg.CookieName)
	w.WriteHeader(http.StatusNoContent)
}

// respondAuthError maps gate failures onto the wire: RedirectError becomes
// a 307 with Location and the state cookie, ForbiddenError a 403.
func (h *Handler) respondAuthError(w http.ResponseWriter, err error) {
	var redirect *RedirectError
	if errors.As(err, &redirect) {
		if redirect.Cookie != nil {
			http.SetCookie(w, redirect.Cookie)
		}
		w.Header().Set("Location", redirect.Location)
		w.WriteHeader(http.StatusTemporaryRedirect)
		return
	}

	var fb *ForbiddenError
	if errors.As(err, &fb) {
		writeError(w, http.StatusForbidden, "forbidden", fb.Reason)
		return
	}

	writeError(w, http.StatusInternalServerError, "internal", "unexpected auth failure")
}

// parsePermissionsParam decodes the permissions query parameter. Frontends
// historically send single-quoted JSON; tolerate it.
func parsePermissionsParam(raw string) (map[string][]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string][]string{}, nil
	}
	raw = strings.ReplaceAll(raw, "'", `"`)

	var requested map[string][]string
	if err := json.Unmarshal([]byte(raw), &requested); err != nil {
		return nil, err
	}
	if requested == nil {
		requested = map[string][]string{}
	}
	return requested, nil
}
