// SPDX-License-Identifier: MPL-2.0

// Package pkgcache models a named, versioned registry package that may or
// may not be materialized in the local cache.
//
// A Package works in one of two modes. In store mode (StoreDir set) the
// package lives in a version-qualified cache slot and floating versions are
// resolved against the registry on first use. In local mode (StoreDir
// empty) the package is whatever directory TargetPath points to, which is
// how command packages are developed without publishing them.
//
// The Package never records whether it is installed: Exists re-checks the
// filesystem on every call.
package pkgcache
