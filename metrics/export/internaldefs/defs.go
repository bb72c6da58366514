package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef binds a counter ID to its exported name and help text.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram ID to its exported base name.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

var counterHelp = map[authcore.MetricID]string{
	authcore.MetricRegisterSuccess:          "Accounts created in PENDING state.",
	authcore.MetricRegisterDuplicate:        "Registrations rejected for an existing email.",
	authcore.MetricOTPIssued:                "One-time codes issued.",
	authcore.MetricOTPIssueRateLimited:      "Code issuance requests refused by the issuance window.",
	authcore.MetricOTPVerifySuccess:         "Successful code verifications.",
	authcore.MetricOTPVerifyFailure:         "Failed code verifications.",
	authcore.MetricOTPAttemptsExceeded:      "Verifications refused after the attempt budget ran out.",
	authcore.MetricLoginSuccess:             "Successful login attempts.",
	authcore.MetricLoginFailure:             "Failed login attempts.",
	authcore.MetricRefreshSuccess:           "Successful refresh operations.",
	authcore.MetricRefreshFailure:           "Failed refresh operations.",
	authcore.MetricRefreshReuseDetected:     "Rotated refresh tokens presented again.",
	authcore.MetricPasswordResetRequest:     "Password reset requests that issued a code.",
	authcore.MetricPasswordResetSuccess:     "Completed password resets.",
	authcore.MetricPasswordResetFailure:     "Failed password reset confirmations.",
	authcore.MetricPasswordChangeSuccess:    "Completed password changes.",
	authcore.MetricPasswordChangeInvalidOld: "Password changes refused for a wrong current password.",
	authcore.MetricAccountStatusChange:      "Administrative account status changes.",
	authcore.MetricRateLimitHit:             "Requests denied by the per-caller rate limiter.",
	authcore.MetricStoreUnavailable:         "Operations aborted because a backing store failed.",
}

// CounterDefs lists every counter in declaration order, named
// authcore_<metric>_total.
var CounterDefs = buildCounterDefs()

// HistogramDefs lists the latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricLoginLatency, Name: "authcore_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds are the le labels of the eight buckets, in seconds.
var HistogramBounds = [8]string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// HistogramBoundSuffix are HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = [8]string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

func buildCounterDefs() []CounterDef {
	defs := make([]CounterDef, 0, len(counterHelp))
	for _, id := range authcore.MetricIDs() {
		help, ok := counterHelp[id]
		if !ok {
			continue
		}
		defs = append(defs, CounterDef{
			ID:   id,
			Name: "authcore_" + id.String() + "_total",
			Help: help,
		})
	}
	return defs
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, dropping
// extras and zero-filling missing entries.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into Prometheus-style
// cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
