package internaldefs

import (
	abuseguard "github.com/veridoc/abuseguard"
)

// CounterDef binds a core counter ID to its exported metric name.
type CounterDef struct {
	ID   abuseguard.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram ID to its exported metric name.
type HistogramDef struct {
	ID   abuseguard.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter both exporters publish, in a stable order.
var CounterDefs = []CounterDef{
	{ID: abuseguard.MetricCheckAllowed, Name: "abuseguard_check_allowed_total", Help: "Checks admitted by the local window."},
	{ID: abuseguard.MetricCheckBlockedLocal, Name: "abuseguard_check_blocked_local_total", Help: "Checks denied by the local window."},
	{ID: abuseguard.MetricCheckBlockedRemote, Name: "abuseguard_check_blocked_remote_total", Help: "Checks denied because the remote authority denied them."},
	{ID: abuseguard.MetricRemoteAllowed, Name: "abuseguard_remote_allowed_total", Help: "Remote authority consultations that allowed the action."},
	{ID: abuseguard.MetricRemoteDenied, Name: "abuseguard_remote_denied_total", Help: "Remote authority consultations that denied the action."},
	{ID: abuseguard.MetricRemoteFailOpen, Name: "abuseguard_remote_fail_open_total", Help: "Remote transport faults degraded to local-only evaluation."},
	{ID: abuseguard.MetricRemoteFailClosed, Name: "abuseguard_remote_fail_closed_total", Help: "Remote transport faults denied under a fail-closed policy."},
	{ID: abuseguard.MetricStoreFault, Name: "abuseguard_store_fault_total", Help: "Store read or write faults absorbed by the advisory path."},
	{ID: abuseguard.MetricStatusQuery, Name: "abuseguard_status_query_total", Help: "Non-consuming status queries."},
	{ID: abuseguard.MetricReset, Name: "abuseguard_reset_total", Help: "Bucket resets."},
	{ID: abuseguard.MetricOutcomeRecorded, Name: "abuseguard_outcome_recorded_total", Help: "Outcome reports delivered to the remote authority."},
	{ID: abuseguard.MetricOutcomeRecordFailed, Name: "abuseguard_outcome_record_failed_total", Help: "Outcome reports that failed to reach the remote authority."},
}

// HistogramDefs lists every histogram both exporters publish.
var HistogramDefs = []HistogramDef{
	{ID: abuseguard.MetricCheckLatency, Name: "abuseguard_check_latency_seconds", Help: "Check latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, Prometheus style.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters legal in
// OTel attribute values.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies a raw bucket slice into the fixed 8-bucket shape,
// zero-filling when the source is short.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative counts
// Prometheus histograms require.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
