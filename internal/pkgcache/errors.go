// SPDX-License-Identifier: MPL-2.0

package pkgcache

import (
	"errors"
	"fmt"

	"github.com/SOALIN228/soa-cli/pkg/pkgref"
)

var (
	// ErrInvalidOptions is returned by New for malformed options.
	ErrInvalidOptions = errors.New("invalid package options")

	// ErrRegistryUnavailable is returned when the registry could not be
	// asked for the package's versions.
	ErrRegistryUnavailable = errors.New("registry unavailable")

	// ErrNoVersions is returned when the registry publishes no version of
	// the package.
	ErrNoVersions = errors.New("no published versions")

	// ErrInstallFailure is returned when the installer fails.
	ErrInstallFailure = errors.New("package install failed")

	// ErrEntryNotFound is returned when the package declares no entry
	// point.
	ErrEntryNotFound = errors.New("package entry point not found")
)

type (
	// InvalidOptionsError describes why New rejected its options.
	InvalidOptionsError struct {
		Reason string
	}

	// RegistryUnavailableError wraps the transport failure met while
	// resolving a floating version.
	RegistryUnavailableError struct {
		Name pkgref.Name
		Err  error
	}

	// NoVersionsError names a package without published versions.
	NoVersionsError struct {
		Name pkgref.Name
	}

	// InstallFailureError wraps an installer failure.
	InstallFailureError struct {
		Name    pkgref.Name
		Version string
		Err     error
	}

	// EntryNotFoundError reports a package without a resolvable entry
	// point. Dir is where the manifest search started.
	EntryNotFoundError struct {
		Name   pkgref.Name
		Dir    string
		Reason string
	}
)

func (e *InvalidOptionsError) Error() string {
	return fmt.Sprintf("invalid package options: %s", e.Reason)
}

func (e *InvalidOptionsError) Unwrap() error { return ErrInvalidOptions }

func (e *RegistryUnavailableError) Error() string {
	return fmt.Sprintf("resolving latest version of %s: %v", e.Name, e.Err)
}

func (e *RegistryUnavailableError) Unwrap() []error { return []error{ErrRegistryUnavailable, e.Err} }

func (e *NoVersionsError) Error() string {
	return fmt.Sprintf("%s has no published versions", e.Name)
}

func (e *NoVersionsError) Unwrap() error { return ErrNoVersions }

func (e *InstallFailureError) Error() string {
	return fmt.Sprintf("installing %s@%s: %v", e.Name, e.Version, e.Err)
}

func (e *InstallFailureError) Unwrap() []error { return []error{ErrInstallFailure, e.Err} }

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("no entry point for %s under %s: %s", e.Name, e.Dir, e.Reason)
}

func (e *EntryNotFoundError) Unwrap() error { return ErrEntryNotFound }
