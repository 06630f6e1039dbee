// SPDX-License-Identifier: MPL-2.0

// Package testutil holds helpers shared by soa-cli tests: environment and
// filesystem helpers that fail the test on error, and FakeRegistry, an
// in-process npm registry serving package documents and gzip tarballs.
package testutil
