// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrInvalidVersion indicates the running version is not valid semver,
	// as with development builds.
	ErrInvalidVersion = errors.New("invalid semantic version")

	//nolint:gochecknoglobals // Test seam for os.Executable().
	osExecutable = os.Executable

	//nolint:gochecknoglobals // Test seam for filepath.EvalSymlinks().
	evalSymlinks = filepath.EvalSymlinks
)

type (
	// NewerResolver finds the highest published version above base.
	// *registry.Client implements it.
	NewerResolver interface {
		ResolveNewerThan(ctx context.Context, base, name string) (string, error)
	}

	// Notice is the outcome of a version check.
	Notice struct {
		Package          string
		CurrentVersion   string
		LatestVersion    string // empty when up to date
		InstallMethod    InstallMethod
		UpgradeAvailable bool
		// Command upgrades the installation; set when UpgradeAvailable.
		Command string
	}

	// Checker compares the running version with the registry.
	Checker struct {
		resolver       NewerResolver
		packageName    string
		currentVersion string
	}
)

// NewChecker returns a Checker for currentVersion of packageName.
func NewChecker(currentVersion, packageName string, resolver NewerResolver) *Checker {
	return &Checker{
		resolver:       resolver,
		packageName:    packageName,
		currentVersion: currentVersion,
	}
}

// Check asks the registry for a version strictly greater than the running
// one. It returns ErrInvalidVersion without a request when the running
// version is not semver.
func (c *Checker) Check(ctx context.Context) (*Notice, error) {
	current, err := semver.NewVersion(c.currentVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, c.currentVersion)
	}

	latest, err := c.resolver.ResolveNewerThan(ctx, current.Original(), c.packageName)
	if err != nil {
		return nil, fmt.Errorf("checking %s for updates: %w", c.packageName, err)
	}

	n := &Notice{
		Package:        c.packageName,
		CurrentVersion: c.currentVersion,
		InstallMethod:  InstallMethodUnknown,
	}
	if execPath, err := resolveExecPath(); err == nil {
		n.InstallMethod = DetectInstallMethod(execPath)
	}
	if latest == "" {
		return n, nil
	}

	n.LatestVersion = latest
	n.UpgradeAvailable = true
	n.Command = upgradeCommand(n.InstallMethod, c.packageName)
	return n, nil
}

// Message returns the text shown to the user.
func (n *Notice) Message() string {
	if !n.UpgradeAvailable {
		return fmt.Sprintf("%s %s is up to date", n.Package, n.CurrentVersion)
	}
	return fmt.Sprintf("please update %s manually, current version: %s, latest version: %s\nupdate command: %s",
		n.Package, n.CurrentVersion, n.LatestVersion, n.Command)
}

// upgradeCommand returns the command that upgrades an installation made
// with method.
func upgradeCommand(method InstallMethod, packageName string) string {
	if method == InstallMethodGoInstall {
		return "go install " + modulePath + "@latest"
	}
	return "npm install -g " + packageName
}

// resolveExecPath returns the running executable with symlinks resolved.
func resolveExecPath() (string, error) {
	p, err := osExecutable()
	if err != nil {
		return "", fmt.Errorf("determining executable path: %w", err)
	}

	resolved, err := evalSymlinks(p)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", p, err)
	}

	return resolved, nil
}
