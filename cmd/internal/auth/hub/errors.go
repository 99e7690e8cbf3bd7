package hub

import "errors"

var (
	// ErrConfig is returned for invalid or incomplete hub configuration.
	ErrConfig = errors.New("invalid hub config")

	// ErrCodeExchange is returned when the hub refuses to exchange an
	// authorization code for a token.
	ErrCodeExchange = errors.New("oauth code exchange rejected")

	// ErrHubUnavailable is returned when the hub cannot be reached or
	// answers with a server error. It is distinct from the hub rejecting a
	// token, which resolves to a nil identity without error.
	ErrHubUnavailable = errors.New("hub unavailable")

	// ErrBadState is returned when a state value cannot be decoded.
	ErrBadState = errors.New("malformed oauth state")
)
