// Package hub is the client for the external single-sign-on hub.
//
// The hub owns the login UI, OAuth codes, and tokens. This package wraps
// the three calls the auth subsystem needs (code exchange, token
// resolution, scope check), builds login redirect URLs, and encodes the
// OAuth state values that bind a redirect to its callback.
//
// Every token resolution bypasses hub-side caching: near-real-time
// revocation matters more than the saved round-trip.
package hub
