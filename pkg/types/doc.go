// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared by the soa-cli packages.
package types
