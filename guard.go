package abuseguard

import (
	"context"
	"time"

	internalaudit "github.com/veridoc/abuseguard/internal/audit"
	"github.com/veridoc/abuseguard/internal/identity"
	"github.com/veridoc/abuseguard/internal/remote"
	"github.com/veridoc/abuseguard/internal/window"
)

// Guard is the hybrid admission gate. Every guarded action flows through
// Check, which consults the remote authority when the action's policy
// asks for it, reconciles the verdict into local state, and then runs the
// local sliding-window algorithm. All paths terminate in a [Decision];
// Guard methods never raise policy, persistence, or transport conditions
// as errors.
//
// Safe for concurrent use after [Builder.Build].
type Guard struct {
	config   Config
	attrs    Attributes
	clock    func() time.Time
	limiters [actionCount]*window.Limiter
	remote   *remote.Client
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
}

// Check gates one attempt at the guarded action. The attempt is recorded
// when admitted; a denied attempt consumes nothing beyond inspection.
// The email seed may be empty, in which case the bucket is per-device
// rather than per-account.
func (g *Guard) Check(ctx context.Context, action Action, email string) Decision {
	start := g.clock()
	defer func() {
		g.metrics.Observe(MetricCheckLatency, g.clock().Sub(start))
	}()

	action = action.clamp()
	pol := g.config.policyFor(action)
	id := identity.Identifier(g.attrs, email)
	lim := g.limiters[action]

	if pol.UseRemoteAuthority && g.remote != nil {
		verdict, err := g.remote.Check(ctx, action.String(), id)
		switch {
		case err != nil:
			if pol.FailClosed {
				g.metrics.Inc(MetricRemoteFailClosed)
				g.emit(ctx, internalaudit.EventRemoteFailClosed, action, id, false, 0, err)
				return Decision{
					Allowed:   false,
					Remaining: 0,
					ResetAt:   g.clock(),
					Message:   "verification unavailable, denying action",
				}
			}
			g.metrics.Inc(MetricRemoteFailOpen)
			g.emit(ctx, internalaudit.EventRemoteFailOpen, action, id, true, verdict.Remaining, err)
			// Fall through to local-only evaluation.

		case !verdict.Allowed:
			until := verdict.BlockedUntil
			if until.IsZero() {
				until = g.clock().Add(pol.BlockDuration)
			}
			// Persist the authoritative deadline so local-only checks
			// stay consistent if the network later drops.
			if berr := lim.Block(id, until); berr != nil {
				g.storeFault(ctx, action, id, berr)
			}
			g.metrics.Inc(MetricRemoteDenied)
			g.metrics.Inc(MetricCheckBlockedRemote)
			g.emit(ctx, internalaudit.EventRemoteDenied, action, id, false, 0, nil)

			verdict.BlockedUntil = until
			verdict.ResetAt = until
			return verdict

		default:
			g.metrics.Inc(MetricRemoteAllowed)
			local := g.localCheck(ctx, action, id, lim)
			if !local.Allowed {
				return local
			}
			// Both layers agree; the remote remaining is the one shown
			// to users so the two enforcement points never display
			// conflicting counters.
			local.Remaining = verdict.Remaining
			if verdict.Message != "" {
				local.Message = verdict.Message
			}
			return local
		}
	}

	return g.localCheck(ctx, action, id, lim)
}

// Status evaluates the bucket without consuming an attempt or consulting
// the remote authority. Intended for passive UI display.
func (g *Guard) Status(ctx context.Context, action Action, email string) Decision {
	g.metrics.Inc(MetricStatusQuery)

	action = action.clamp()
	id := identity.Identifier(g.attrs, email)
	d, err := g.limiters[action].Status(id)
	if err != nil {
		g.storeFault(ctx, action, id, err)
	}
	return d
}

// Reset clears the bucket for the action and seed, forgiving prior
// failures. Called after a successful authenticated action.
func (g *Guard) Reset(ctx context.Context, action Action, email string) error {
	action = action.clamp()
	id := identity.Identifier(g.attrs, email)
	if err := g.limiters[action].Reset(id); err != nil {
		return err
	}

	g.metrics.Inc(MetricReset)
	g.emit(ctx, internalaudit.EventReset, action, id, true, g.config.policyFor(action).MaxAttempts, nil)
	return nil
}

// RecordOutcome notifies the remote authority of a guarded action's final
// outcome. Best effort: transport faults are counted and audited, never
// returned, and the call is a no-op when the action's policy does not use
// the remote authority.
func (g *Guard) RecordOutcome(ctx context.Context, action Action, email string, success bool) {
	action = action.clamp()
	if g.remote == nil || !g.config.policyFor(action).UseRemoteAuthority {
		return
	}

	id := identity.Identifier(g.attrs, email)
	if err := g.remote.RecordOutcome(ctx, action.String(), id, success); err != nil {
		g.metrics.Inc(MetricOutcomeRecordFailed)
		g.emit(ctx, internalaudit.EventOutcomeFailed, action, id, success, 0, err)
		return
	}
	g.metrics.Inc(MetricOutcomeRecorded)
}

// MetricsSnapshot returns a point-in-time copy of all metrics.
func (g *Guard) MetricsSnapshot() MetricsSnapshot {
	return g.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped under
// backpressure.
func (g *Guard) AuditDropped() uint64 {
	return g.audit.Dropped()
}

// Close flushes and stops the audit dispatcher.
func (g *Guard) Close() {
	g.audit.Close()
}

func (g *Guard) localCheck(ctx context.Context, action Action, id string, lim *window.Limiter) Decision {
	d, err := lim.Check(id)
	if err != nil {
		g.storeFault(ctx, action, id, err)
	}

	if d.Allowed {
		g.metrics.Inc(MetricCheckAllowed)
		g.emit(ctx, internalaudit.EventCheckAllowed, action, id, true, d.Remaining, nil)
	} else {
		g.metrics.Inc(MetricCheckBlockedLocal)
		g.emit(ctx, internalaudit.EventCheckBlocked, action, id, false, 0, nil)
	}
	return d
}

func (g *Guard) storeFault(ctx context.Context, action Action, id string, err error) {
	g.metrics.Inc(MetricStoreFault)
	g.emit(ctx, internalaudit.EventStoreFault, action, id, true, 0, err)
}

func (g *Guard) emit(ctx context.Context, eventType string, action Action, id string, allowed bool, remaining int, err error) {
	if g.audit == nil {
		return
	}

	event := internalaudit.Event{
		Timestamp:  g.clock(),
		EventType:  eventType,
		Action:     action.String(),
		Identifier: id,
		Allowed:    allowed,
		Remaining:  remaining,
	}
	if err != nil {
		event.Error = err.Error()
	}
	g.audit.Emit(ctx, event)
}
