// Package authority implements the server-side remote authority: the
// non-spoofable enforcement point the client-side limiter reconciles
// against. It owns the wire contract consumed by the bridge client and
// provides Redis-backed and in-memory limiter implementations behind a
// net/http handler.
//
// Unlike the client-side layer, limiter state here must be updated
// atomically per identifier: two concurrent requests must never both
// observe "not yet blocked" once the threshold is truly exceeded. The
// Redis implementation guarantees this with a single Lua script per
// check; the memory implementation with a mutex.
package authority

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBackendUnavailable wraps storage failures in limiter backends.
	ErrBackendUnavailable = errors.New("authority backend unavailable")
)

// CheckRequest is the wire request shape. Record=true marks an
// outcome-recording call instead of a rate-limit check.
type CheckRequest struct {
	Action     string `json:"action"`
	Identifier string `json:"identifier"`
	Record     bool   `json:"record,omitempty"`
	Success    bool   `json:"success,omitempty"`
}

// CheckResponse is the wire response shape, used both for 200 allowed
// bodies and for the 429 denial payload. BlockedUntil is RFC 3339.
type CheckResponse struct {
	Allowed      bool   `json:"allowed"`
	Remaining    int    `json:"remaining"`
	BlockedUntil string `json:"blockedUntil,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Limit is the authoritative policy for one action.
type Limit struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// Verdict is a limiter's decision for one check.
type Verdict struct {
	Allowed      bool
	Remaining    int
	BlockedUntil time.Time
}

// Limiter is the authoritative rate limiter behind the HTTP handler.
// Implementations must be safe for concurrent use and must serialize
// updates per (action, identifier) pair.
type Limiter interface {
	// Allow checks and records one attempt for the pair.
	Allow(ctx context.Context, action, identifier string) (Verdict, error)

	// RecordOutcome notes the final outcome of a guarded action for
	// server-side anomaly detection. Best effort.
	RecordOutcome(ctx context.Context, action, identifier string, success bool) error
}

// Limits maps canonical lowercase action names to their authoritative
// policy. Lookups for unknown actions fall back to Default.
type Limits struct {
	Actions map[string]Limit
	Default Limit
}

// For returns the limit bound to action.
func (l Limits) For(action string) Limit {
	if lim, ok := l.Actions[action]; ok {
		return lim
	}
	return l.Default
}

// Validate checks that every configured limit is usable.
func (l Limits) Validate() error {
	check := func(name string, lim Limit) error {
		if lim.MaxAttempts <= 0 {
			return fmt.Errorf("limit %q: MaxAttempts must be > 0", name)
		}
		if lim.Window <= 0 {
			return fmt.Errorf("limit %q: Window must be > 0", name)
		}
		if lim.BlockDuration <= 0 {
			return fmt.Errorf("limit %q: BlockDuration must be > 0", name)
		}
		return nil
	}

	if err := check("default", l.Default); err != nil {
		return err
	}
	for name, lim := range l.Actions {
		if err := check(name, lim); err != nil {
			return err
		}
	}
	return nil
}

// DefaultLimits mirrors the client-side presets so both enforcement
// points agree under normal operation.
func DefaultLimits() Limits {
	return Limits{
		Actions: map[string]Limit{
			"login":           {MaxAttempts: 5, Window: time.Minute, BlockDuration: 15 * time.Minute},
			"registration":    {MaxAttempts: 3, Window: time.Hour, BlockDuration: 24 * time.Hour},
			"password_reset":  {MaxAttempts: 3, Window: time.Hour, BlockDuration: 6 * time.Hour},
			"content_signing": {MaxAttempts: 10, Window: time.Hour, BlockDuration: 2 * time.Hour},
		},
		Default: Limit{MaxAttempts: 10, Window: time.Minute, BlockDuration: 5 * time.Minute},
	}
}
