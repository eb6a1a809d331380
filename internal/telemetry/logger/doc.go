// Package logger provides structured logging for subwire.
//
// It wraps log/slog with a small Logger interface, a process-wide level
// that can be changed at runtime, context helpers that carry the session
// ID, and redaction of credentials before they reach the output.
//
//   - logger.go: handler selection, dynamic level, global default
//   - context.go: logger and session ID propagation through context
//   - redact.go: password and URL credential masking
package logger
