// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"errors"
	"fmt"

	"github.com/SOALIN228/soa-cli/pkg/pkgref"
)

var (
	// ErrInvalidRequest is returned for a request missing its store
	// directory, registry or packages.
	ErrInvalidRequest = errors.New("invalid install request")

	// ErrVersionNotFound is returned when the registry does not publish the
	// requested version.
	ErrVersionNotFound = errors.New("version not found in registry")

	// ErrIntegrityMismatch is returned when a downloaded tarball does not
	// match the registry checksums.
	ErrIntegrityMismatch = errors.New("integrity mismatch")

	// ErrUnsafeArchive is returned for tarball entries that would escape
	// the package directory.
	ErrUnsafeArchive = errors.New("unsafe archive entry")
)

type (
	// Installer installs packages from a registry into an isolated store.
	Installer interface {
		Install(ctx context.Context, req Request) error
	}

	// Package names one exact package version to install.
	Package struct {
		Name    pkgref.Name
		Version string
	}

	// Request describes one install run. Root is the install root whose
	// node_modules directory receives a link to each package; StoreDir
	// holds the version-qualified cache slots.
	Request struct {
		Root     string
		StoreDir string
		Registry string
		Packages []Package
	}

	// VersionNotFoundError names the missing package version.
	VersionNotFoundError struct {
		Name    pkgref.Name
		Version string
	}

	// IntegrityError reports a checksum mismatch for a downloaded tarball.
	IntegrityError struct {
		Name      pkgref.Name
		Version   string
		Algorithm string
		Expected  string
		Got       string
	}
)

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("%s@%s is not published", e.Name, e.Version)
}

func (e *VersionNotFoundError) Unwrap() error { return ErrVersionNotFound }

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s verification failed for %s@%s\nExpected: %s\nGot:      %s",
		e.Algorithm, e.Name, e.Version, e.Expected, e.Got)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrityMismatch }

// Validate checks that the request can be executed.
func (r Request) Validate() error {
	if r.StoreDir == "" {
		return fmt.Errorf("%w: store directory is required", ErrInvalidRequest)
	}
	if r.Registry == "" {
		return fmt.Errorf("%w: registry is required", ErrInvalidRequest)
	}
	if len(r.Packages) == 0 {
		return fmt.Errorf("%w: no packages", ErrInvalidRequest)
	}
	for _, p := range r.Packages {
		if err := p.Name.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	return nil
}
