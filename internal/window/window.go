// Package window implements the local sliding-window limiter. It counts
// attempt timestamps in the trailing window rather than fixed-aligned
// intervals, so a burst straddling a window boundary cannot double the
// effective rate. State lives in an injected key-value store; every
// persistence fault degrades to an empty bucket because the local layer
// is a soft guard, not a security boundary.
package window

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/veridoc/abuseguard/store"
)

// ErrStoreFault wraps local persistence failures. It is advisory: the
// decision returned alongside it is always valid.
var ErrStoreFault = errors.New("bucket store fault")

// Config holds the window policy for one limiter instance.
type Config struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// Decision is the sole outcome shape of every check. BlockedUntil is the
// zero time unless the bucket is in the blocked state.
type Decision struct {
	Allowed      bool
	Remaining    int
	ResetAt      time.Time
	BlockedUntil time.Time
	Message      string
}

// bucketRecord is the persisted bucket shape: attempt timestamps in epoch
// milliseconds plus an optional block deadline.
type bucketRecord struct {
	Attempts     []int64 `json:"attempts"`
	BlockedUntil int64   `json:"blockedUntil,omitempty"`
}

// Limiter gates attempts for buckets under one storage namespace.
type Limiter struct {
	store  store.Store
	prefix string
	config Config
	now    func() time.Time
}

// New creates a limiter writing bucket records under prefix. A nil now
// defaults to time.Now.
func New(st store.Store, prefix string, cfg Config, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		store:  st,
		prefix: prefix,
		config: cfg,
		now:    now,
	}
}

func (l *Limiter) key(id string) string {
	return l.prefix + ":" + id
}

// Check is the gate-and-record operation. It prunes the bucket, promotes
// it to blocked when the in-window count reaches the threshold, and
// otherwise records the attempt. The advisory error reports store faults;
// the decision is valid either way.
func (l *Limiter) Check(id string) (Decision, error) {
	now := l.now()
	rec, loadErr := l.load(id)

	if until := blockDeadline(rec, now); !until.IsZero() {
		return blockedDecision(until, now), loadErr
	}

	rec.Attempts = prune(rec.Attempts, now.Add(-l.config.Window))
	rec.BlockedUntil = 0

	if len(rec.Attempts) >= l.config.MaxAttempts {
		until := now.Add(l.config.BlockDuration)
		// The block deadline replaces the attempt log: once it expires the
		// bucket re-evaluates from an empty window, even when the block is
		// shorter than the window itself.
		rec.Attempts = nil
		rec.BlockedUntil = until.UnixMilli()
		saveErr := l.save(id, rec)
		return blockedDecision(until, now), firstErr(loadErr, saveErr)
	}

	rec.Attempts = append(rec.Attempts, now.UnixMilli())
	saveErr := l.save(id, rec)

	return Decision{
		Allowed:   true,
		Remaining: l.config.MaxAttempts - len(rec.Attempts),
		ResetAt:   time.UnixMilli(rec.Attempts[0]).Add(l.config.Window),
	}, firstErr(loadErr, saveErr)
}

// Status evaluates the bucket exactly like Check but never mutates state:
// no attempt is recorded and an over-threshold bucket is reported as
// blocked-shaped without persisting the promotion.
func (l *Limiter) Status(id string) (Decision, error) {
	now := l.now()
	rec, loadErr := l.load(id)

	if until := blockDeadline(rec, now); !until.IsZero() {
		return blockedDecision(until, now), loadErr
	}

	attempts := prune(rec.Attempts, now.Add(-l.config.Window))
	if len(attempts) >= l.config.MaxAttempts {
		// Report the moment the oldest in-window attempt ages out; the
		// next Check will set the real block deadline.
		resetAt := time.UnixMilli(attempts[0]).Add(l.config.Window)
		return Decision{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   resetAt,
			Message:   retryMessage(resetAt.Sub(now)),
		}, loadErr
	}

	var resetAt time.Time
	if len(attempts) > 0 {
		resetAt = time.UnixMilli(attempts[0]).Add(l.config.Window)
	}
	return Decision{
		Allowed:   true,
		Remaining: l.config.MaxAttempts - len(attempts),
		ResetAt:   resetAt,
	}, loadErr
}

// Reset clears the bucket entirely, forgiving prior failures.
func (l *Limiter) Reset(id string) error {
	if err := l.store.Remove(l.key(id)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
	return nil
}

// Block writes an externally imposed block deadline into the bucket, so
// later local-only checks agree with an authoritative remote denial. An
// existing later deadline is kept: blocks never shorten.
func (l *Limiter) Block(id string, until time.Time) error {
	rec, loadErr := l.load(id)

	if existing := rec.BlockedUntil; existing >= until.UnixMilli() {
		return loadErr
	}
	rec.BlockedUntil = until.UnixMilli()

	return firstErr(loadErr, l.save(id, rec))
}

func (l *Limiter) load(id string) (bucketRecord, error) {
	raw, ok, err := l.store.Get(l.key(id))
	if err != nil {
		return bucketRecord{}, fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
	if !ok {
		return bucketRecord{}, nil
	}

	var rec bucketRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		// Corrupt record: fail open with an empty bucket.
		return bucketRecord{}, fmt.Errorf("%w: corrupt record: %v", ErrStoreFault, err)
	}
	return rec, nil
}

func (l *Limiter) save(id string, rec bucketRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
	if err := l.store.Set(l.key(id), string(raw)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFault, err)
	}
	return nil
}

// blockDeadline returns the active block deadline, or the zero time when
// the bucket is armed.
func blockDeadline(rec bucketRecord, now time.Time) time.Time {
	if rec.BlockedUntil == 0 {
		return time.Time{}
	}
	until := time.UnixMilli(rec.BlockedUntil)
	if until.After(now) {
		return until
	}
	return time.Time{}
}

func blockedDecision(until, now time.Time) Decision {
	return Decision{
		Allowed:      false,
		Remaining:    0,
		ResetAt:      until,
		BlockedUntil: until,
		Message:      retryMessage(until.Sub(now)),
	}
}

// prune keeps only timestamps at or after cutoff, preserving order.
func prune(attempts []int64, cutoff time.Time) []int64 {
	min := cutoff.UnixMilli()
	valid := attempts[:0]
	for _, ts := range attempts {
		if ts >= min {
			valid = append(valid, ts)
		}
	}
	return valid
}

func retryMessage(d time.Duration) string {
	return "too many attempts, try again in " + FormatDuration(d)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
