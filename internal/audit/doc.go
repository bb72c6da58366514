// Package audit relays security-relevant events (registration, OTP checks,
// logins, token refreshes, password changes, throttling) to a Sink.
//
// [Dispatcher] buffers events and delivers them from one goroutine, with
// drop-if-full or block-if-full semantics. Sinks: [NoOpSink], [ChannelSink],
// [JSONWriterSink] and [ZerologSink].
//
// The package does not decide which events to emit and never receives OTP
// codes, passwords or tokens.
package audit
