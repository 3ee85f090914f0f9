// Package output renders call results for the terminal.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//
// Each formatter implements the Formatter interface. JSON output accumulates
// results and is written by Flush.
package output
