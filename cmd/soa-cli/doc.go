// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the soa-cli command tree.
//
// Global flags and configuration are resolved before the tree is built so
// that commands declared in the configuration become real subcommands. Every
// subcommand that runs a command package hands a normalized invocation to
// internal/dispatch.
package cmd
