package authapi

import (
	"fmt"
	"net/http"
)

// ForbiddenError is a terminal auth failure: missing or invalid code, state
// mismatch, hub-rejected token, or insufficient scope. It always surfaces
// as HTTP 403 and is never retried by this layer.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason == "" {
		return "forbidden"
	}
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

func forbidden(format string, args ...any) *ForbiddenError {
	return &ForbiddenError{Reason: fmt.Sprintf(format, args...)}
}

// RedirectError short-circuits a handler with a login redirect. It is a
// recoverable outcome, not a hard failure: the browser follows Location to
// the hub's login UI and comes back through the OAuth callback. Cookie
// carries the pending state value.
type RedirectError struct {
	Location string
	Cookie   *http.Cookie
}

func (e *RedirectError) Error() string {
	return "login redirect required"
}
