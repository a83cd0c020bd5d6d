// Package log provides structured protocol logging for TVCast.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, discovery,
// commissioning, interaction, service). It is separate from operational
// logging (slog) - protocol capture provides a complete machine-readable
// event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLog = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLog, _ = log.NewFileLogger("/var/log/tvcast/caster.clog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLog = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/tvcast/caster.clog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw frame bytes (FrameEvent)
//   - Wire: Decoded messages (MessageEvent)
//   - Service: State changes (StateChangeEvent)
//
// Control messages (ping/pong/close) and errors have dedicated event types.
//
// # File Format
//
// Log files use CBOR encoding with .clog extension. The castlog CLI tool
// provides viewing, filtering, and export capabilities.
package log
