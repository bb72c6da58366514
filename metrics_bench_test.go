package authcore

import (
	"sync/atomic"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	for _, enabled := range []bool{true, false} {
		name := "enabled"
		if !enabled {
			name = "disabled"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: enabled})
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					m.Inc(MetricOTPIssued)
				}
			})
		})
	}
}

func BenchmarkMetricsObserveLoginLatency(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	d := 40 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricLoginLatency, d)
		}
	})
}

// packedCounters has no cache-line padding; it is the baseline the padded
// layout is measured against.
type packedCounters struct {
	counters [metricIDCount]uint64
}

func (m *packedCounters) Inc(id MetricID) {
	atomic.AddUint64(&m.counters[id], 1)
}

var hotMetricIDs = [...]MetricID{
	MetricLoginSuccess,
	MetricLoginFailure,
	MetricRefreshSuccess,
	MetricOTPIssued,
	MetricOTPVerifySuccess,
	MetricOTPVerifyFailure,
	MetricRateLimitHit,
	MetricRegisterSuccess,
}

func benchmarkMixed(b *testing.B, inc func(MetricID)) {
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			inc(hotMetricIDs[idx])
			idx = (idx + 1) % len(hotMetricIDs)
		}
	})
}

func BenchmarkMetricsMixedPadded(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	benchmarkMixed(b, m.Inc)
}

func BenchmarkMetricsMixedPacked(b *testing.B) {
	m := &packedCounters{}
	benchmarkMixed(b, m.Inc)
}
