// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"crypto/sha1" //nolint:gosec // legacy npm shasum
	"crypto/sha256"
	"crypto/sha512"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/SOALIN228/soa-cli/internal/registry"
	"github.com/SOALIN228/soa-cli/pkg/pkgref"
)

// maxTarballBytes is the upper bound on a downloaded package tarball.
const maxTarballBytes = 512 << 20

type (
	// TarballInstaller installs packages straight from registry tarballs.
	TarballInstaller struct {
		httpClient *http.Client
		userAgent  string
	}

	// Option configures a TarballInstaller during construction.
	Option func(*TarballInstaller)

	// installRun is the state of one Install call. visited holds every
	// name@version whose installation has started, which also ends
	// dependency cycles.
	installRun struct {
		installer *TarballInstaller
		client    *registry.Client
		storeDir  string
		visited   map[string]bool
	}

	// downloadedTarball is a tarball saved to disk together with its digests, keyed
	// by SRI algorithm name.
	downloadedTarball struct {
		path    string
		digests map[string][]byte
	}
)

// WithHTTPClient sets the HTTP client used for metadata and tarballs.
func WithHTTPClient(hc *http.Client) Option {
	return func(i *TarballInstaller) {
		i.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(i *TarballInstaller) {
		i.userAgent = ua
	}
}

// NewTarballInstaller creates a TarballInstaller.
func NewTarballInstaller(opts ...Option) *TarballInstaller {
	i := &TarballInstaller{
		httpClient: http.DefaultClient,
		userAgent:  "soa-cli/dev",
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install materializes every package of req together with the packages
// named by its "dependencies". Packages already present in the store are
// not downloaded again. The first failure aborts the run.
func (i *TarballInstaller) Install(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(req.StoreDir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	run := &installRun{
		installer: i,
		client: registry.NewClient(
			registry.WithRegistryURL(req.Registry),
			registry.WithHTTPClient(i.httpClient),
			registry.WithUserAgent(i.userAgent),
		),
		storeDir: req.StoreDir,
		visited:  make(map[string]bool),
	}

	for _, p := range req.Packages {
		version, err := run.resolveRequested(ctx, p)
		if err != nil {
			return fmt.Errorf("installing %s@%s: %w", p.Name, p.Version, err)
		}
		dest, err := run.installVersion(ctx, p.Name, version)
		if err != nil {
			return fmt.Errorf("installing %s@%s: %w", p.Name, version, err)
		}
		linkRoot(req.Root, p.Name, dest)
	}
	return nil
}

func (r *installRun) resolveRequested(ctx context.Context, p Package) (string, error) {
	if p.Version != "" && p.Version != pkgref.LatestTag {
		return p.Version, nil
	}
	latest, err := r.client.ResolveLatest(ctx, p.Name.String())
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", &VersionNotFoundError{Name: p.Name, Version: pkgref.LatestTag}
	}
	return latest, nil
}

// installVersion places name@version and its dependency tree in the store
// and returns the package directory. Dependencies are linked into the
// staging directory before it is renamed, so a slot present in the store
// is always complete.
func (r *installRun) installVersion(ctx context.Context, name pkgref.Name, version string) (string, error) {
	dest := pkgref.PackageDir(r.storeDir, name, version)

	key := name.String() + "@" + version
	if r.visited[key] {
		return dest, nil
	}
	r.visited[key] = true

	if _, err := os.Stat(dest); err == nil {
		slog.Debug("package already in store", "name", name, "version", version, "dir", dest)
		return dest, nil
	}

	meta, err := r.client.FetchMetadata(ctx, name.String())
	if err != nil {
		return "", err
	}
	info, ok := meta.Version(version)
	if !ok {
		return "", &VersionNotFoundError{Name: name, Version: version}
	}
	if info.Dist.Tarball == "" {
		return "", fmt.Errorf("%s@%s publishes no tarball", name, version)
	}

	slog.Info("downloading package", "name", name, "version", version)
	dl, err := r.installer.download(ctx, info.Dist.Tarball, r.storeDir)
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(dl.path) }()

	if err := verify(name, version, info.Dist, dl.digests); err != nil {
		return "", err
	}

	staging, err := os.MkdirTemp(r.storeDir, ".staging-")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	if err := extractTarball(dl.path, staging); err != nil {
		return "", fmt.Errorf("extracting tarball: %w", err)
	}
	if err := r.installDependencies(ctx, staging); err != nil {
		return "", err
	}

	if err := os.Chmod(staging, 0o755); err != nil {
		return "", fmt.Errorf("setting package directory permissions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("creating cache slot: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		// Another process may have installed the same version meanwhile.
		if _, statErr := os.Stat(dest); statErr != nil {
			return "", fmt.Errorf("moving package into store: %w", err)
		}
	}

	slog.Debug("installed package", "name", name, "version", version, "dir", dest)
	return dest, nil
}

// installDependencies resolves the "dependencies" of the manifest in
// pkgDir, installs each into its own store slot and links it as
// <pkgDir>/node_modules/<name>.
func (r *installRun) installDependencies(ctx context.Context, pkgDir string) error {
	deps, err := readDependencies(pkgDir)
	if err != nil {
		return err
	}

	for _, dep := range slices.Sorted(maps.Keys(deps)) {
		name := pkgref.Name(dep)
		if err := name.Validate(); err != nil {
			return fmt.Errorf("dependency %q: %w", dep, err)
		}

		spec := deps[dep]
		version, err := r.client.ResolveRange(ctx, dep, spec)
		if err != nil {
			return fmt.Errorf("dependency %s: %w", dep, err)
		}
		if version == "" {
			return fmt.Errorf("dependency %s: %w", dep, &VersionNotFoundError{Name: name, Version: spec})
		}

		depDir, err := r.installVersion(ctx, name, version)
		if err != nil {
			return fmt.Errorf("dependency %s@%s: %w", dep, version, err)
		}
		if err := linkDependency(pkgDir, name, depDir); err != nil {
			return err
		}
	}
	return nil
}

// readDependencies returns the "dependencies" map of pkgDir/package.json.
// A package without a manifest has no dependencies.
func readDependencies(pkgDir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading package manifest: %w", err)
	}

	var m struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing package manifest: %w", err)
	}
	return m.Dependencies, nil
}

// download streams url into a temp file inside dir while computing every
// digest verify may need.
func (i *TarballInstaller) download(ctx context.Context, url, dir string) (_ *downloadedTarball, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", i.userAgent)

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading tarball: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading tarball %s: unexpected status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(dir, ".download-*.tgz")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	hashes := map[string]hash.Hash{
		"sha1":   sha1.New(), //nolint:gosec // legacy npm shasum
		"sha256": sha256.New(),
		"sha384": sha512.New384(),
		"sha512": sha512.New(),
	}
	writers := []io.Writer{tmp}
	for _, h := range hashes {
		writers = append(writers, h)
	}

	n, err := io.Copy(io.MultiWriter(writers...), io.LimitReader(resp.Body, maxTarballBytes+1))
	if err != nil {
		return nil, fmt.Errorf("writing tarball: %w", err)
	}
	if n > maxTarballBytes {
		return nil, fmt.Errorf("tarball %s exceeds %d bytes", url, maxTarballBytes)
	}

	digests := make(map[string][]byte, len(hashes))
	for alg, h := range hashes {
		digests[alg] = h.Sum(nil)
	}
	return &downloadedTarball{path: tmp.Name(), digests: digests}, nil
}

// linkRoot exposes dest as <root>/node_modules/<name>. Failures are logged
// and ignored; the store directory alone is authoritative.
func linkRoot(root string, name pkgref.Name, dest string) {
	if root == "" {
		return
	}
	if err := linkPackage(root, name, dest); err != nil {
		slog.Debug("cannot link package into root", "name", name, "error", err)
	}
}

// linkDependency exposes depDir as <pkgDir>/node_modules/<name>, where
// Node's module resolution finds it. Unlike the root link it is required.
func linkDependency(pkgDir string, name pkgref.Name, depDir string) error {
	if err := linkPackage(pkgDir, name, depDir); err != nil {
		return fmt.Errorf("linking dependency %s: %w", name, err)
	}
	return nil
}

// linkPackage points <dir>/node_modules/<name> at dest, replacing a stale
// link. A real directory already in place is kept.
func linkPackage(dir string, name pkgref.Name, dest string) error {
	link := filepath.Join(dir, "node_modules", filepath.FromSlash(name.String()))
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return err
	}

	if fi, err := os.Lstat(link); err == nil {
		if fi.Mode()&os.ModeSymlink == 0 {
			slog.Debug("keeping existing package directory", "path", link)
			return nil
		}
		_ = os.Remove(link)
	}
	return os.Symlink(dest, link)
}
