// Package cmd implements the hitcall CLI commands using Cobra.
//
// Available commands:
//   - call: Send one request through a named client
//   - endpoints: List the operations a client or OpenAPI document defines
//   - history: Show or prune recorded calls
//   - list: Display the configured clients
//   - init: Create a starter configuration file
//   - version: Show hitcall version information
//
// Flags fall back to HITCALL_* environment variables. The call command can
// repeat a request and report latency, record calls to SQLite, and re-run
// whenever the configuration file changes.
package cmd
