// Package otel exposes authcore metrics through an OpenTelemetry meter.
//
// Each counter becomes an Int64ObservableCounter; every latency bucket and
// the sample count become Int64ObservableGauges. The caller owns the
// MeterProvider.
package otel
