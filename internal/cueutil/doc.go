// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the helpers shared by CUE-backed file loaders:
// user-facing error formatting with JSON-path prefixes and file size limits.
package cueutil
