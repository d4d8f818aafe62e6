package abuseguard

import (
	"errors"
	"time"
)

// Action is the closed set of guarded operations. Using an enum instead
// of free-form policy names makes an unknown-action lookup impossible at
// compile time.
type Action uint8

const (
	// ActionLogin guards login attempts.
	ActionLogin Action = iota
	// ActionRegistration guards account registration.
	ActionRegistration
	// ActionPasswordReset guards password reset requests.
	ActionPasswordReset
	// ActionContentSigning guards content signing operations.
	ActionContentSigning
	// ActionCertificateVerify guards certificate verification lookups.
	ActionCertificateVerify
	// ActionGeneric is the fallback preset for anything else.
	ActionGeneric

	actionCount
)

// String returns the canonical lowercase wire name of the action.
func (a Action) String() string {
	switch a {
	case ActionLogin:
		return "login"
	case ActionRegistration:
		return "registration"
	case ActionPasswordReset:
		return "password_reset"
	case ActionContentSigning:
		return "content_signing"
	case ActionCertificateVerify:
		return "certificate_verify"
	default:
		return "generic"
	}
}

// clamp maps values outside the known action range to ActionGeneric, so
// an unrecognized action degrades to the fallback preset instead of
// panicking on limiter lookup.
func (a Action) clamp() Action {
	if a < 0 || a >= actionCount {
		return ActionGeneric
	}
	return a
}

// Policy is the immutable window/threshold/block configuration bound to
// one action.
type Policy struct {
	// MaxAttempts is the number of attempts allowed inside Window.
	MaxAttempts int

	// Window is the trailing interval attempts are counted over.
	Window time.Duration

	// BlockDuration is how long a bucket stays blocked after reaching
	// the threshold. Zero defaults to 2×Window.
	BlockDuration time.Duration

	// UseRemoteAuthority consults the server-side limiter before the
	// local algorithm runs.
	UseRemoteAuthority bool

	// FailClosed denies the action when the remote authority is
	// unreachable instead of falling back to local-only evaluation.
	// Off by default: availability of the primary feature wins when the
	// secondary enforcement layer itself is broken.
	FailClosed bool
}

// RemoteConfig tunes the remote authority bridge.
type RemoteConfig struct {
	// Endpoint is the authority check URL. Required when any policy
	// sets UseRemoteAuthority.
	Endpoint string

	// Timeout bounds the single outbound request per check. Zero means
	// the bridge default (5s).
	Timeout time.Duration

	// DefaultRemaining is the conservative remaining reported when the
	// bridge fails open.
	DefaultRemaining int
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Config is the full guard configuration: one policy per action plus the
// ambient subsystems. Configure during initialization, then treat as
// immutable.
type Config struct {
	Login             Policy
	Registration      Policy
	PasswordReset     Policy
	ContentSigning    Policy
	CertificateVerify Policy
	Generic           Policy

	Remote  RemoteConfig
	Audit   AuditConfig
	Metrics MetricsConfig

	// KeyPrefix namespaces bucket records in the local store.
	KeyPrefix string
}

func (c *Config) policyFor(a Action) Policy {
	switch a {
	case ActionLogin:
		return c.Login
	case ActionRegistration:
		return c.Registration
	case ActionPasswordReset:
		return c.PasswordReset
	case ActionContentSigning:
		return c.ContentSigning
	case ActionCertificateVerify:
		return c.CertificateVerify
	default:
		return c.Generic
	}
}

func (c *Config) setPolicy(a Action, p Policy) {
	switch a {
	case ActionLogin:
		c.Login = p
	case ActionRegistration:
		c.Registration = p
	case ActionPasswordReset:
		c.PasswordReset = p
	case ActionContentSigning:
		c.ContentSigning = p
	case ActionCertificateVerify:
		c.CertificateVerify = p
	default:
		c.Generic = p
	}
}

func (c *Config) usesRemote() bool {
	for a := Action(0); a < actionCount; a++ {
		if c.policyFor(a).UseRemoteAuthority {
			return true
		}
	}
	return false
}

func defaultConfig() Config {
	return Config{
		Login:             Policy{MaxAttempts: 5, Window: time.Minute, BlockDuration: 15 * time.Minute, UseRemoteAuthority: true},
		Registration:      Policy{MaxAttempts: 3, Window: time.Hour, BlockDuration: 24 * time.Hour, UseRemoteAuthority: true},
		PasswordReset:     Policy{MaxAttempts: 3, Window: time.Hour, BlockDuration: 6 * time.Hour, UseRemoteAuthority: true},
		ContentSigning:    Policy{MaxAttempts: 10, Window: time.Hour, BlockDuration: 2 * time.Hour, UseRemoteAuthority: true},
		CertificateVerify: Policy{MaxAttempts: 20, Window: time.Minute, BlockDuration: 10 * time.Minute},
		Generic:           Policy{MaxAttempts: 10, Window: time.Minute, BlockDuration: 5 * time.Minute},
		Remote: RemoteConfig{
			Timeout:          5 * time.Second,
			DefaultRemaining: 1,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		KeyPrefix: "ag",
	}
}

// DefaultConfig returns the standard preset table: remote-backed limits
// for login, registration, password reset, and content signing;
// local-only limits for certificate verification and the generic
// fallback.
func DefaultConfig() Config {
	return defaultConfig()
}

// StrictConfig is the fail-closed variant for deployments that prefer
// denying guarded actions over admitting them while the remote authority
// is down.
func StrictConfig() Config {
	cfg := defaultConfig()
	for a := Action(0); a < actionCount; a++ {
		p := cfg.policyFor(a)
		if p.UseRemoteAuthority {
			p.FailClosed = true
			cfg.setPolicy(a, p)
		}
	}
	return cfg
}

// applyDefaults fills derived values: an unset BlockDuration becomes
// 2×Window, an unset KeyPrefix becomes "ag".
func (c *Config) applyDefaults() {
	for a := Action(0); a < actionCount; a++ {
		p := c.policyFor(a)
		if p.BlockDuration == 0 && p.Window > 0 {
			p.BlockDuration = 2 * p.Window
			c.setPolicy(a, p)
		}
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "ag"
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	for a := Action(0); a < actionCount; a++ {
		p := c.policyFor(a)
		if p.MaxAttempts <= 0 {
			return errors.New(a.String() + ": MaxAttempts must be > 0")
		}
		if p.Window <= 0 {
			return errors.New(a.String() + ": Window must be > 0")
		}
		if p.BlockDuration < 0 {
			return errors.New(a.String() + ": BlockDuration must be >= 0")
		}
		if p.FailClosed && !p.UseRemoteAuthority {
			return errors.New(a.String() + ": FailClosed requires UseRemoteAuthority")
		}
	}

	if c.usesRemote() && c.Remote.Endpoint == "" {
		return errors.New("Remote Endpoint is required when any policy uses the remote authority")
	}
	if c.Remote.Timeout < 0 {
		return errors.New("Remote Timeout must be >= 0")
	}
	if c.Remote.DefaultRemaining < 0 {
		return errors.New("Remote DefaultRemaining must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
