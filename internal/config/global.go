// SPDX-License-Identifier: MPL-2.0

package config

// userHomeOverride replaces os.UserHomeDir in tests, which does not follow
// HOME on every platform.
var userHomeOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	userHomeOverride = ""
}

// SetUserHomeOverride makes dir the user home directory.
func SetUserHomeOverride(dir string) {
	userHomeOverride = dir
}
