// Package cli holds the spendctl subcommands. Every command opens the
// client runtime on demand, does one thing, prints JSON to its output and
// closes the runtime again.
package cli
