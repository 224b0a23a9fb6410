package client

import "errors"

// Errors returned by the mirror and the client.
var (
	// ErrVersionSkew means the server's build identifier changed. The
	// mirror must be discarded.
	ErrVersionSkew = errors.New("client: server build changed")

	// ErrRevisionMismatch means a patch did not apply to the local
	// revision. It is recovered by requesting a refresh.
	ErrRevisionMismatch = errors.New("client: revision mismatch")

	// ErrNoRefresh means a patch arrived before any refresh.
	ErrNoRefresh = errors.New("client: patch before refresh")

	// ErrUnexpectedMessage is returned for messages a server never sends.
	ErrUnexpectedMessage = errors.New("client: unexpected message")

	// ErrTransport wraps dial and read failures.
	ErrTransport = errors.New("client: transport failure")

	// ErrReload means the session ended and the client must start over
	// from an empty mirror.
	ErrReload = errors.New("client: reload required")
)
