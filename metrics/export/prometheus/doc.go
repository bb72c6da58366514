// Package prometheus renders authcore counters and the login latency
// histogram in the Prometheus text exposition format.
//
// Counters are named authcore_<metric>_total; the histogram is
// authcore_login_latency_seconds. Nothing is registered globally: callers
// mount [Exporter.Handler] where they want it.
package prometheus
