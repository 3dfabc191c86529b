// Package commands implements the postcode-cli subcommands: one-shot panel
// search, single-country lookup, and an interactive type-ahead mode that reads
// keystrokes from stdin.
package commands
