// Package session holds hubgate's in-memory session state.
//
// A User is the locally cached result of validating an opaque hub-issued
// token. Records are intentionally ephemeral: they live for the process
// lifetime and are rebuilt on demand from a still-valid hub token, so
// nothing here is persisted.
//
// Hub communication and HTTP transport are out of scope for this package.
package session
