// Package logging provides structured logging for cloudkv nodes.
//
// # Overview
//
// The logging package provides a structured logging interface with support for:
//
//   - Multiple log levels (debug, info, warn, error)
//   - Text and JSON output formats
//   - Request ID tracking for distributed tracing
//   - Field-based contextual logging
//   - Named subsystem loggers
//
// Output is rendered by hashicorp/go-hclog.
//
// # Creating a Logger
//
// Create a logger with configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/cloudkv/cloudkv.log",
//	})
//
// Or use defaults:
//
//	logger := logging.NewDefault() // Info level, text format, stdout
//
// For testing, use a no-op logger:
//
//	logger := logging.NewNop()
//
// # Log Levels
//
// Four log levels are supported:
//
//	logger.Debug("detailed debugging info", "key", "value")
//	logger.Info("informational message", "key", "value")
//	logger.Warn("warning message", "key", "value")
//	logger.Error("error message", "key", "value")
//
// Parse level from string:
//
//	level := logging.ParseLevel("debug") // Returns LevelDebug
//
// # Structured Logging
//
// Add key-value pairs to log entries:
//
//	logger.Info("became leader",
//	    "term", 3,
//	    "peers", 2,
//	)
//
// Output (JSON format):
//
//	{
//	    "@timestamp": "2026-02-18T10:30:00Z",
//	    "@level": "info",
//	    "@module": "cloudkv.raft",
//	    "@message": "became leader",
//	    "term": 3,
//	    "peers": 2
//	}
//
// # Request ID Tracking
//
// Add request ID for tracing:
//
//	requestID := logging.GenerateRequestID()
//	connLogger := logger.WithRequestID(requestID)
//
//	connLogger.Info("processing request") // Includes request_id field
//
// # Contextual Fields
//
// Create loggers with persistent fields:
//
//	connLogger := logger.WithFields(
//	    "remote", conn.RemoteAddr().String(),
//	)
//
//	// All subsequent logs include these fields
//	connLogger.Info("request received")
//
// Subsystems get their own logger name:
//
//	raftLogger := logger.Named("raft")
//
// # Output Formats
//
// Text format (human-readable):
//
//	2026-02-18T10:30:00Z [INFO]  cloudkv.raft: became leader: term=3 peers=2
//
// JSON format (machine-parseable):
//
//	{"@timestamp":"2026-02-18T10:30:00Z","@level":"info","@message":"became leader",...}
//
// # Output Destinations
//
// Configure output destination:
//
//	logging.Config{Output: "stdout"}           // Standard output
//	logging.Config{Output: "stderr"}           // Standard error
//	logging.Config{Output: "/var/log/cloudkv.log"} // File path
package logging
