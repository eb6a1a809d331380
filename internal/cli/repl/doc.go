// Package repl runs an interactive subscriber session.
//
// Lines typed at the prompt issue subscribe-family commands and pings on
// a live connection while received messages are printed as they arrive.
//
//   - repl.go: read loop, message pump and command dispatch
//   - completer.go: command name completion
//   - history.go: command history persistence
package repl
