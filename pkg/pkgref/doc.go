// SPDX-License-Identifier: MPL-2.0

// Package pkgref names npm-style packages and the cache slots they occupy.
//
// A reference is a Name plus a Version. Version is a tagged value: it is
// either Latest, which must be resolved against a registry before anything
// touches the disk, or Pinned to a concrete semantic version. Slot naming
// follows the layout npminstall uses for its shared store:
//
//	@soa-cli/init 1.0.0 => <storeDir>/_@soa-cli_init@1.0.0@@soa-cli
//
// with the package contents in the "init" subdirectory of that slot.
package pkgref
