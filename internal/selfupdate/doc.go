// SPDX-License-Identifier: MPL-2.0

// Package selfupdate tells the user when a newer soa-cli release is on the
// registry and how to install it. The upgrade command depends on how the
// running binary was installed, see DetectInstallMethod.
package selfupdate
