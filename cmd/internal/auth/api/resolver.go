package authapi

import (
	"errors"
	"net/http"

	"hubgate/cmd/internal/auth/hub"
	"hubgate/cmd/internal/auth/session"
)

// CurrentUser is the per-request gate used by every protected endpoint.
//
// required only decides the failure mode when no session cookie is present:
// endpoints that demand permissions fail hard with 403, everything else
// gets a login redirect. The actual permission check happens at the
// endpoint via User.CheckPermissions.
//
// On a valid upstream token the local record is reused as-is when cached;
// session-scoped fields are not re-synced from the hub per request, only
// token validity is rechecked. A cache miss (e.g. after a restart wiped the
// store while the hub token stayed valid) repopulates the store under the
// store's single lookup-or-insert critical section.
func (h *Handler) CurrentUser(r *http.Request, required map[string][]string) (session.User, error) {
	token, ok := h.tokenFromCookie(r)
	if !ok {
		if len(required) > 0 {
			return session.User{}, forbidden("authentication required")
		}
		return session.User{}, h.redirectToLogin(r)
	}

	identity, err := h.hub.ResolveToken(r.Context(), token)
	if err != nil {
		// Hub unreachable and hub-says-no both end in a fresh login; the
		// log line keeps them distinguishable.
		h.log.Warn("auth.resolve.unavailable", "err", err)
		return session.User{}, h.redirectToLogin(r)
	}
	if identity == nil {
		// Upstream rejected the token; the cached local record, if any,
		// is no longer trustworthy.
		return session.User{}, h.redirectToLogin(r)
	}

	if !h.hub.CheckScopes(identity) {
		return session.User{}, forbidden("user %s cannot access this server", identity.Name)
	}

	user, created := h.store.GetOrCreate(token, func() session.User {
		return session.NewUser(token, identity.Name)
	})
	if created {
		h.metrics.IncSessionCreated()
		h.log.Info("auth.session.rebuilt", "username", user.Username)
	}

	// Never blocks: the reporter runs as a detached unit of work.
	h.activity.Report()

	return user, nil
}

// redirectToLogin builds the CSRF-safe redirect to the hub's login UI,
// binding a fresh state value to the URL the browser should return to.
func (h *Handler) redirectToLogin(r *http.Request) error {
	state, err := hub.NewState(requestURL(r))
	if err != nil {
		return errors.Join(errors.New("generating oauth state"), err)
	}
	return &RedirectError{
		Location: h.hub.LoginURL(state),
		Cookie:   h.stateCookie(state),
	}
}
