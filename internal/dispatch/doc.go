// SPDX-License-Identifier: MPL-2.0

// Package dispatch runs soa-cli commands that are implemented by registry
// packages.
//
// A Dispatcher looks the command up in a Table, makes sure the implementing
// package is cached and current (or uses a local package directory when a
// target path override is set), locates its entry point and runs it as a
// child process. The child receives the invocation as a JSON document, both
// as its last argument and in the SOA_CLI_INVOCATION environment variable,
// shares the parent's standard streams, and its exit code becomes the
// command's exit code.
package dispatch
