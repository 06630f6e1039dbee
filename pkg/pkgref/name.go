// SPDX-License-Identifier: MPL-2.0

package pkgref

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/SOALIN228/soa-cli/internal/platform"
)

// scopeSeparator splits "@scope/name" package names.
const scopeSeparator = "/"

// ErrInvalidName is the sentinel error wrapped by InvalidNameError.
var ErrInvalidName = errors.New("invalid package name")

type (
	// Name is an npm package name, either "name" or "@scope/name".
	Name string

	// InvalidNameError is returned when a Name fails validation.
	InvalidNameError struct {
		Value  Name
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid package name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidName so callers can use errors.Is.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// Validate checks that the name is non-empty, carries at most one scope
// separator and cannot escape the store directory once used as a path.
// Segments that Windows reserves as device names are rejected on every
// platform.
func (n Name) Validate() error {
	s := string(n)
	switch {
	case s == "":
		return &InvalidNameError{Value: n, Reason: "name is empty"}
	case strings.Count(s, scopeSeparator) > 1:
		return &InvalidNameError{Value: n, Reason: "at most one '/' is allowed"}
	case strings.ContainsAny(s, `\:`):
		return &InvalidNameError{Value: n, Reason: "path separators are not allowed"}
	case strings.IndexFunc(s, unicode.IsSpace) >= 0:
		return &InvalidNameError{Value: n, Reason: "whitespace is not allowed"}
	}

	for _, part := range strings.Split(s, scopeSeparator) {
		if part == "" || part == "." || part == ".." {
			return &InvalidNameError{Value: n, Reason: "empty or relative path segment"}
		}
		if platform.IsWindowsReservedName(strings.TrimPrefix(part, "@")) {
			return &InvalidNameError{Value: n, Reason: fmt.Sprintf("%q is a reserved device name", part)}
		}
	}
	return nil
}

// IsScoped reports whether the name has the "@scope/name" form.
func (n Name) IsScoped() bool {
	return strings.Contains(string(n), scopeSeparator)
}

// SortName returns the portion of the name before the scope separator.
// npminstall groups scoped packages under this name on disk.
func (n Name) SortName() string {
	before, _, _ := strings.Cut(string(n), scopeSeparator)
	return before
}

// Sanitized returns the name with the scope separator replaced by '_',
// which keeps it a single path component.
func (n Name) Sanitized() string {
	return strings.Replace(string(n), scopeSeparator, "_", 1)
}

// String returns the raw package name.
func (n Name) String() string { return string(n) }
