package abuseguard

import (
	"io"
	"time"

	internalaudit "github.com/veridoc/abuseguard/internal/audit"
	"github.com/veridoc/abuseguard/internal/identity"
	"github.com/veridoc/abuseguard/internal/window"
	"github.com/veridoc/abuseguard/store"
)

// Decision is the sole return contract of [Guard.Check] and
// [Guard.Status]. BlockedUntil is the zero time unless the bucket is in
// the blocked state; Message, when set, is safe to show to end users.
type Decision = window.Decision

// Store is the injected local persistence capability. See
// [store.MemoryStore] and [store.FileStore] for the bundled backends.
type Store = store.Store

// Attributes are the pre-authentication environment signals folded into
// the device fingerprint.
type Attributes = identity.Attributes

// SystemAttributes builds a best-effort attribute set from the host
// environment for non-browser callers.
func SystemAttributes() Attributes {
	return identity.SystemAttributes()
}

// Fingerprint reduces attributes to the base-36 rendering of a fast
// 32-bit hash. Not a security primitive: collisions are acceptable.
func Fingerprint(a Attributes) string {
	return identity.Fingerprint(a)
}

// Identifier derives the rate-limit bucket identity for a caller,
// combining the lowercased-email hash with the device fingerprint when an
// email is available.
func Identifier(a Attributes, email string) string {
	return identity.Identifier(a, email)
}

// FormatDuration renders a countdown for end users: "2h 15m", "45s",
// "now".
func FormatDuration(d time.Duration) string {
	return window.FormatDuration(d)
}

// AuditEvent is a structured audit record emitted by the guard.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the guard's audit
// dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
