// Package abuseguard provides a hybrid rate-limiting and abuse-prevention
// core with a local sliding-window limiter backed by an optional remote
// authority service.
//
// The package is designed for concurrent workloads: Guard methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// abuseguard is the public surface. It exposes [Guard], [Builder], [Config],
// and value types (Decision, MetricsSnapshot, Attributes, etc.). All internal
// coordination, the window algorithm, identifier derivation, the remote wire
// client, audit dispatch, lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose HTTP clients, internal stores, or record encoding details in its
//     public API.
//   - Perform I/O outside of Guard methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports abuseguard (no import cycles).
//
// # Enforcement contract
//
// Check is the hot path. With the remote authority disabled it completes with
// at most two store round-trips and never touches the network. A Check that
// consults the remote authority is allowed one HTTP round-trip; transport
// faults degrade to local-only evaluation unless the action's policy is
// fail-closed.
package abuseguard
