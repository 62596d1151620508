// Package logging provides structured logging for lanscout.
//
// This package wraps zap logger with convenience functions for common
// logging patterns used throughout the tool. Logging is silent by default
// so scan output and the TUI stay clean; it is enabled through the
// LANSCOUT_LOG_LEVEL environment variable or an explicit level.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (datagram hex dumps, discarded packets)
//   - Info: Normal operations (session start/end, server lifecycle)
//   - Warn: Non-fatal issues (retransmission failures, skipped interfaces)
//   - Error: Fatal issues (socket setup failures, startup errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Scan session complete",
//	    zap.Int("hosts", len(hosts)),
//	    zap.Duration("window", opts.Window),
//	)
//
// # Diagnostics
//
// LogDatagram dumps raw datagrams in hex and ASCII at debug level, which
// is the main tool for diagnosing undecodable or unexpected responses:
//
//	logging.LogDatagram(src.String(), data)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
