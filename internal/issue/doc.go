// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. It may link an entry of the markdown issue catalog,
// which the CLI renders with glamour in verbose mode.
package issue
