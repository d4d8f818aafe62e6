// Package prometheus provides Prometheus collectors for abuseguard metrics.
//
// [NewPrometheusExporter] accepts an [abuseguard.Guard] and exposes an [http.Handler]
// that renders all abuseguard counters and histograms in Prometheus text exposition
// format. Counter names are prefixed abuseguard_*_total; the single histogram is
// abuseguard_check_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate guard state.
package prometheus
