package hub

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// StateTTL bounds how long a pending login attempt stays valid; the state
// cookie expires with it.
const StateTTL = 10 * time.Minute

// State binds one login redirect to its callback. The random ID is the
// CSRF defense; NextURL is where the browser returns after login.
type State struct {
	ID      string `json:"state_id"`
	NextURL string `json:"next_url"`
}

// NewState encodes a fresh unguessable state value bound to nextURL.
// The wire form is base64url JSON, safe for both query params and cookies.
func NewState(nextURL string) (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	buf, err := json.Marshal(State{
		ID:      hex.EncodeToString(raw[:]),
		NextURL: nextURL,
	})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DecodeState parses a wire-form state value.
func DecodeState(value string) (State, error) {
	buf, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrBadState, err)
	}
	var st State
	if err := json.Unmarshal(buf, &st); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrBadState, err)
	}
	return st, nil
}

// NextURL extracts the return URL from a state value, falling back to "/"
// when the state is malformed or carries no URL.
func NextURL(value string) string {
	st, err := DecodeState(value)
	if err != nil || st.NextURL == "" {
		return "/"
	}
	return st.NextURL
}

// StateCookieName derives the state cookie's name from the session cookie's,
// keeping the pair visibly related in browser tooling.
func StateCookieName(sessionCookie string) string {
	return sessionCookie + "-oauth-state"
}
