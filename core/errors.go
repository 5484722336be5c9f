package core

import "errors"

// Common errors surfaced by the wallet session and contract binding layers.
var (
	ErrProviderUnavailable = errors.New("no wallet provider available")
	ErrUserRejected        = errors.New("user rejected the request")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrNotConnected        = errors.New("wallet not connected")
	ErrStaleHandle         = errors.New("contract handle bound to a stale identity")
	ErrReadOnlyHandle      = errors.New("handle is read-only")
	ErrUnknownMethod       = errors.New("method not in contract interface")
)
