// Package internal groups the implementation packages that are intentionally
// private to abuseguard.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - identity — device fingerprint and bucket identifier derivation
//   - remote — wire-contract bridge client for the remote authority
//   - window — the local sliding-window limiter algorithm
//
// # What this package must NOT do
//
//   - Export types that appear in the public abuseguard API (the root package
//     re-exports via aliases instead).
//   - Be imported by any package outside the abuseguard module.
package internal
