// SPDX-License-Identifier: MPL-2.0

// Package installer materializes registry packages into the soa-cli cache.
//
// TarballInstaller reads each package's version document, downloads the
// published tarball, verifies it against the registry checksums and unpacks
// it into the version-qualified directory computed by pkgref.PackageDir.
// Nothing outside the store directory and the root's node_modules link is
// written.
package installer
