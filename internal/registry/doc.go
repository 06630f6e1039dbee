// SPDX-License-Identifier: MPL-2.0

// Package registry reads package metadata from an npm-compatible registry.
//
// A missing package (any non-200 answer) is reported as nil metadata and an
// empty version list; only transport failures surface as errors. The client
// never retries and applies no timeout of its own, so callers control both
// through the context they pass in.
package registry
