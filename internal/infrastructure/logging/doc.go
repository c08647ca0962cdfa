// Package logging provides structured logging and the fault boundary for the solar poller.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - Text, JSON or colourised console output
//   - Append-only file output with size-based rotation
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error, critical)
//   - Guard: recovers panics and logs unhandled faults at CRITICAL
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error, critical
//	  format: "text"     # text, json, console
//	  output: "file"     # stdout, stderr, file
//	  file:
//	    path: "./logs/solar.log"
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	defer logger.Close()
//	err := logger.Guard(func() error { return loop.Run(ctx) })
//
// Never log passwords. Inverter and database credentials are never passed to the logger.
package logging
