// SPDX-License-Identifier: MPL-2.0

package pkgref

import (
	"errors"
	"fmt"

	semver "github.com/Masterminds/semver/v3"
)

// LatestTag is the user-facing spelling of the floating version.
const LatestTag = "latest"

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid package version")

type (
	// Version is either Latest or a pinned semantic version. The zero value
	// is Latest.
	Version struct {
		pinned string
	}

	// InvalidVersionError is returned when a pinned version is not semver.
	InvalidVersionError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid package version %q (expected %q or a semantic version)", e.Value, LatestTag)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// Latest returns the floating version.
func Latest() Version { return Version{} }

// Pinned returns a version fixed to v. The caller is responsible for v being
// a concrete version; use ParseVersion for untrusted input.
func Pinned(v string) Version { return Version{pinned: v} }

// ParseVersion parses user input. An empty string and "latest" both yield
// Latest; anything else must be a semantic version.
func ParseVersion(s string) (Version, error) {
	if s == "" || s == LatestTag {
		return Latest(), nil
	}
	if _, err := semver.NewVersion(s); err != nil {
		return Version{}, &InvalidVersionError{Value: s}
	}
	return Pinned(s), nil
}

// IsLatest reports whether the version still needs resolving.
func (v Version) IsLatest() bool { return v.pinned == "" }

// Concrete returns the pinned version and true, or "" and false for Latest.
func (v Version) Concrete() (string, bool) {
	return v.pinned, v.pinned != ""
}

// String returns the pinned version, or "latest".
func (v Version) String() string {
	if v.IsLatest() {
		return LatestTag
	}
	return v.pinned
}
