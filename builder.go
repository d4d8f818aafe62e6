package abuseguard

import (
	"errors"
	"net/http"
	"time"

	internalaudit "github.com/veridoc/abuseguard/internal/audit"
	"github.com/veridoc/abuseguard/internal/identity"
	"github.com/veridoc/abuseguard/internal/remote"
	"github.com/veridoc/abuseguard/internal/window"
	"github.com/veridoc/abuseguard/store"
)

// Builder assembles a [Guard]. Zero-value fields fall back to sensible
// defaults: the preset config table, an in-memory store, host-derived
// attributes, and the wall clock.
type Builder struct {
	config     Config
	store      store.Store
	httpClient *http.Client
	auditSink  AuditSink
	attrs      *Attributes
	clock      func() time.Time

	built bool
}

// New creates a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the full configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the local persistence backend. Defaults to an
// in-memory store, which means limiter state does not survive restarts.
func (b *Builder) WithStore(st store.Store) *Builder {
	b.store = st
	return b
}

// WithHTTPClient sets the client used for remote authority calls.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithAuditSink sets the audit event destination.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithAttributes fixes the environment attributes used for identity
// derivation, typically the signals reported by a browser client.
func (b *Builder) WithAttributes(a Attributes) *Builder {
	b.attrs = &a
	return b
}

// WithClock overrides the time source. Used by tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the check latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles the guard. The builder
// is single use.
func (b *Builder) Build() (*Guard, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st := b.store
	if st == nil {
		st = store.NewMemoryStore()
	}

	attrs := identity.SystemAttributes()
	if b.attrs != nil {
		attrs = *b.attrs
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	g := &Guard{
		config:  cfg,
		attrs:   attrs,
		clock:   clock,
		audit:   internalaudit.NewDispatcher(internalaudit.Config(cfg.Audit), b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}

	if cfg.usesRemote() {
		g.remote = remote.New(remote.Config{
			Endpoint:         cfg.Remote.Endpoint,
			Timeout:          cfg.Remote.Timeout,
			DefaultRemaining: cfg.Remote.DefaultRemaining,
		}, b.httpClient)
	}

	for a := Action(0); a < actionCount; a++ {
		pol := cfg.policyFor(a)
		g.limiters[a] = window.New(st, cfg.KeyPrefix+":"+a.String(), window.Config{
			MaxAttempts:   pol.MaxAttempts,
			Window:        pol.Window,
			BlockDuration: pol.BlockDuration,
		}, clock)
	}

	b.built = true

	return g, nil
}
