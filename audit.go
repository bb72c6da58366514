package authcore

import (
	"io"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/rs/zerolog"
)

// AuditEvent is one security-relevant outcome emitted by the Engine.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards events.
type NoOpSink = audit.NoOpSink

// NewChannelSink returns a sink that forwards events to a buffered channel.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewZerologSink logs events through logger.
func NewZerologSink(logger zerolog.Logger) *audit.ZerologSink {
	return audit.NewZerologSink(logger)
}
