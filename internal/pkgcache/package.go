// SPDX-License-Identifier: MPL-2.0

package pkgcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/SOALIN228/soa-cli/internal/installer"
	"github.com/SOALIN228/soa-cli/pkg/pkgref"
)

// ManifestFile is the manifest searched for by RootFilePath.
const ManifestFile = "package.json"

type (
	// VersionResolver resolves the highest published version of a package.
	// *registry.Client implements it.
	VersionResolver interface {
		ResolveLatest(ctx context.Context, name string) (string, error)
	}

	// Options configures a Package.
	Options struct {
		// TargetPath is the install root, or the package directory itself
		// when StoreDir is empty.
		TargetPath string
		// StoreDir holds the version-qualified cache slots. Empty selects
		// local mode.
		StoreDir string
		Name     pkgref.Name
		Version  pkgref.Version
		// Registry is the registry URL handed to the installer.
		Registry  string
		Resolver  VersionResolver
		Installer installer.Installer
	}

	// Package is a named, versioned package that may or may not be present
	// in the cache. It is not safe for concurrent use.
	Package struct {
		targetPath string
		storeDir   string
		name       pkgref.Name
		version    pkgref.Version
		registry   string
		resolver   VersionResolver
		installer  installer.Installer
	}

	manifest struct {
		Main string `json:"main"`
	}
)

// New validates opts and returns a Package. Store mode requires a
// resolver, an installer and a registry URL.
func New(opts Options) (*Package, error) {
	if opts.TargetPath == "" {
		return nil, &InvalidOptionsError{Reason: "target path is required"}
	}
	if err := opts.Name.Validate(); err != nil {
		return nil, &InvalidOptionsError{Reason: err.Error()}
	}
	if opts.StoreDir != "" {
		switch {
		case opts.Resolver == nil:
			return nil, &InvalidOptionsError{Reason: "a version resolver is required with a store directory"}
		case opts.Installer == nil:
			return nil, &InvalidOptionsError{Reason: "an installer is required with a store directory"}
		case opts.Registry == "":
			return nil, &InvalidOptionsError{Reason: "a registry URL is required with a store directory"}
		}
	}

	return &Package{
		targetPath: opts.TargetPath,
		storeDir:   opts.StoreDir,
		name:       opts.Name,
		version:    opts.Version,
		registry:   opts.Registry,
		resolver:   opts.Resolver,
		installer:  opts.Installer,
	}, nil
}

// Name returns the package name.
func (p *Package) Name() pkgref.Name { return p.name }

// Version returns the current version, which is Latest until Prepare
// resolves it.
func (p *Package) Version() pkgref.Version { return p.version }

// TargetPath returns the install root (store mode) or package directory
// (local mode).
func (p *Package) TargetPath() string { return p.targetPath }

// StoreDir returns the cache store directory, empty in local mode.
func (p *Package) StoreDir() string { return p.storeDir }

// IsLocal reports whether the package is resolved directly against
// TargetPath.
func (p *Package) IsLocal() bool { return p.storeDir == "" }

// CacheFilePath returns the cache slot of the current version. It is empty
// in local mode and while the version is unresolved.
func (p *Package) CacheFilePath() string {
	v, ok := p.version.Concrete()
	if p.IsLocal() || !ok {
		return ""
	}
	return pkgref.SlotPath(p.storeDir, p.name, v)
}

// PackageDir returns the directory holding the package contents: the
// package directory inside the cache slot, or TargetPath in local mode.
// It is empty while a store-mode version is unresolved.
func (p *Package) PackageDir() string {
	if p.IsLocal() {
		return p.targetPath
	}
	v, ok := p.version.Concrete()
	if !ok {
		return ""
	}
	return pkgref.PackageDir(p.storeDir, p.name, v)
}

// Prepare creates the store directory and resolves a floating version to
// the latest published one. The resolution happens once per Package.
func (p *Package) Prepare(ctx context.Context) error {
	if !p.IsLocal() {
		if err := os.MkdirAll(p.storeDir, 0o755); err != nil {
			return fmt.Errorf("creating store directory %s: %w", p.storeDir, err)
		}
	}

	if !p.version.IsLatest() || p.resolver == nil {
		return nil
	}

	latest, err := p.resolveLatest(ctx)
	if err != nil {
		return err
	}
	slog.Debug("resolved latest version", "name", p.name, "version", latest)
	p.version = pkgref.Pinned(latest)
	return nil
}

// Exists reports whether the package is materialized. In store mode that is
// the cache slot of the (resolved) version; in local mode it is TargetPath,
// whatever the version.
func (p *Package) Exists(ctx context.Context) (bool, error) {
	if p.IsLocal() {
		return pathExists(p.targetPath)
	}
	if err := p.Prepare(ctx); err != nil {
		return false, err
	}
	return pathExists(p.CacheFilePath())
}

// Install materializes the current version into the store.
func (p *Package) Install(ctx context.Context) error {
	if p.IsLocal() {
		return &InvalidOptionsError{Reason: "a local package cannot be installed"}
	}
	if err := p.Prepare(ctx); err != nil {
		return err
	}
	v, _ := p.version.Concrete()
	return p.install(ctx, v)
}

// Update moves the package to the latest published version, installing it
// only when its cache slot is missing. Older slots are left in place. The
// in-memory version becomes the latest one even when nothing was
// installed.
func (p *Package) Update(ctx context.Context) error {
	if p.IsLocal() {
		return &InvalidOptionsError{Reason: "a local package cannot be updated"}
	}
	if err := p.Prepare(ctx); err != nil {
		return err
	}

	latest, err := p.resolveLatest(ctx)
	if err != nil {
		return err
	}

	present, err := pathExists(pkgref.SlotPath(p.storeDir, p.name, latest))
	if err != nil {
		return err
	}
	if !present {
		if err := p.install(ctx, latest); err != nil {
			return err
		}
	} else {
		slog.Debug("latest version already cached", "name", p.name, "version", latest)
	}

	p.version = pkgref.Pinned(latest)
	return nil
}

// RootFilePath returns the absolute, forward-slash path of the entry point
// declared by the nearest package.json at or above PackageDir.
func (p *Package) RootFilePath(ctx context.Context) (string, error) {
	if !p.IsLocal() && p.version.IsLatest() {
		if err := p.Prepare(ctx); err != nil {
			return "", err
		}
	}

	start := p.PackageDir()
	dir, err := findManifestDir(start)
	if err != nil {
		return "", err
	}
	if dir == "" {
		return "", &EntryNotFoundError{Name: p.name, Dir: start, Reason: "no " + ManifestFile + " found"}
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return "", fmt.Errorf("reading manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parsing %s: %w", filepath.Join(dir, ManifestFile), err)
	}
	if m.Main == "" {
		return "", &EntryNotFoundError{Name: p.name, Dir: dir, Reason: `manifest declares no "main"`}
	}

	return pkgref.ToSlash(filepath.Join(dir, filepath.FromSlash(m.Main))), nil
}

func (p *Package) install(ctx context.Context, version string) error {
	req := installer.Request{
		Root:     p.targetPath,
		StoreDir: p.storeDir,
		Registry: p.registry,
		Packages: []installer.Package{{Name: p.name, Version: version}},
	}
	if err := p.installer.Install(ctx, req); err != nil {
		return &InstallFailureError{Name: p.name, Version: version, Err: err}
	}
	return nil
}

func (p *Package) resolveLatest(ctx context.Context) (string, error) {
	latest, err := p.resolver.ResolveLatest(ctx, p.name.String())
	if err != nil {
		return "", &RegistryUnavailableError{Name: p.name, Err: err}
	}
	if latest == "" {
		return "", &NoVersionsError{Name: p.name}
	}
	return latest, nil
}

// findManifestDir walks upward from start to the nearest directory holding
// a manifest. It returns "" when the filesystem root is reached.
func findManifestDir(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	for {
		ok, err := pathExists(filepath.Join(dir, ManifestFile))
		if err != nil {
			return "", err
		}
		if ok {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return false, nil
	}
	return false, err
}
