package authority

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryLimiter is an in-process [Limiter] for tests and single-node
// deployments. Safe for concurrent use; the mutex provides the
// per-identifier serialization the contract requires.
type MemoryLimiter struct {
	limits Limits
	now    func() time.Time

	mu       sync.Mutex
	buckets  map[string]*memBucket
	outcomes map[string]int64

	cleanupInterval time.Duration
	done            chan struct{}
	wg              sync.WaitGroup
	closeOnce       sync.Once
}

type memBucket struct {
	attempts     []time.Time
	blockedUntil time.Time
}

// NewMemoryLimiter creates an in-memory limiter and starts a background
// goroutine that evicts expired entries. Call Close to stop it. A nil now
// defaults to time.Now.
func NewMemoryLimiter(limits Limits, now func() time.Time) (*MemoryLimiter, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}

	m := &MemoryLimiter{
		limits:          limits,
		now:             now,
		buckets:         make(map[string]*memBucket),
		outcomes:        make(map[string]int64),
		cleanupInterval: 10 * time.Minute,
		done:            make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m, nil
}

// Allow checks and records one attempt for the (action, identifier) pair.
func (m *MemoryLimiter) Allow(_ context.Context, action, identifier string) (Verdict, error) {
	lim := m.limits.For(action)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	key := action + ":" + identifier
	b, ok := m.buckets[key]
	if !ok {
		b = &memBucket{}
		m.buckets[key] = b
	}

	if b.blockedUntil.After(now) {
		return Verdict{Allowed: false, BlockedUntil: b.blockedUntil}, nil
	}
	b.blockedUntil = time.Time{}

	cutoff := now.Add(-lim.Window)
	valid := b.attempts[:0]
	for _, ts := range b.attempts {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	b.attempts = valid

	if len(b.attempts) >= lim.MaxAttempts {
		b.blockedUntil = now.Add(lim.BlockDuration)
		b.attempts = nil
		return Verdict{Allowed: false, BlockedUntil: b.blockedUntil}, nil
	}

	b.attempts = append(b.attempts, now)
	return Verdict{Allowed: true, Remaining: lim.MaxAttempts - len(b.attempts)}, nil
}

// RecordOutcome counts the final outcome of a guarded action.
func (m *MemoryLimiter) RecordOutcome(_ context.Context, action, identifier string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.outcomes[outcomeKey(action, identifier, success)]++
	return nil
}

// Outcomes returns the recorded success/failure counts for a pair.
func (m *MemoryLimiter) Outcomes(action, identifier string) (successes, failures int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.outcomes[outcomeKey(action, identifier, true)],
		m.outcomes[outcomeKey(action, identifier, false)]
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (m *MemoryLimiter) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
	return nil
}

func (m *MemoryLimiter) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *MemoryLimiter) cleanup() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, b := range m.buckets {
		if b.blockedUntil.After(now) {
			continue
		}
		action, _, _ := strings.Cut(key, ":")
		cutoff := now.Add(-m.limits.For(action).Window)

		live := 0
		for _, ts := range b.attempts {
			if ts.After(cutoff) {
				live++
			}
		}
		if live == 0 {
			delete(m.buckets, key)
		}
	}
}
