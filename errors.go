package abuseguard

import (
	"github.com/veridoc/abuseguard/internal/remote"
	"github.com/veridoc/abuseguard/internal/window"
)

// Sentinel errors surfaced by the guard. Check and Status never return
// errors: these show up only in audit events, in Reset, and in the
// advisory error channel of the internal layers.
var (
	// ErrStoreFault reports a local persistence fault. The check that
	// observed it still produced a valid decision from an empty bucket.
	ErrStoreFault = window.ErrStoreFault

	// ErrRemoteUnavailable reports a remote authority transport fault:
	// network error, unexpected status, or malformed payload.
	ErrRemoteUnavailable = remote.ErrUnavailable
)
