// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha1" //nolint:gosec // npm shasum is sha1
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type (
	// FakeRegistry is an npm-compatible registry backed by httptest. It
	// serves package documents at /<name> and tarballs at
	// /<name>/-/<basename>-<version>.tgz.
	FakeRegistry struct {
		server *httptest.Server

		mu       sync.Mutex
		packages map[string]map[string]*fakeVersion
		status   int

		metadataRequests atomic.Int64
		tarballRequests  atomic.Int64
	}

	fakeVersion struct {
		tarball   []byte
		shasum    string
		integrity string
		main      string
	}
)

// NewFakeRegistry starts a registry that is closed when the test ends.
func NewFakeRegistry(t testing.TB) *FakeRegistry {
	t.Helper()

	r := &FakeRegistry{packages: make(map[string]map[string]*fakeVersion)}
	r.server = httptest.NewServer(http.HandlerFunc(r.serveHTTP))
	t.Cleanup(r.server.Close)
	return r
}

// URL returns the registry base URL.
func (r *FakeRegistry) URL() string { return r.server.URL }

// Client returns an HTTP client that talks to the registry.
func (r *FakeRegistry) Client() *http.Client { return r.server.Client() }

// Close stops the server; later requests fail at the transport level.
func (r *FakeRegistry) Close() { r.server.Close() }

// Publish adds name@version. files maps paths inside the package to their
// content; entries whose content starts with "#!" are packed as executable.
// The "main" field of files["package.json"], if any, is mirrored into the
// version document.
func (r *FakeRegistry) Publish(t testing.TB, name, version string, files map[string]string) {
	t.Helper()

	tarball, err := BuildTarball(files)
	if err != nil {
		t.Fatalf("building tarball for %s@%s: %v", name, version, err)
	}

	sha1Sum := sha1.Sum(tarball) //nolint:gosec // npm shasum is sha1
	sha512Sum := sha512.Sum512(tarball)

	v := &fakeVersion{
		tarball:   tarball,
		shasum:    hex.EncodeToString(sha1Sum[:]),
		integrity: "sha512-" + base64.StdEncoding.EncodeToString(sha512Sum[:]),
	}
	if manifest, ok := files["package.json"]; ok {
		var pkg struct {
			Main string `json:"main"`
		}
		if json.Unmarshal([]byte(manifest), &pkg) == nil {
			v.main = pkg.Main
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.packages[name] == nil {
		r.packages[name] = make(map[string]*fakeVersion)
	}
	r.packages[name][version] = v
}

// PublishVersions adds empty packages for each version, which is enough for
// version resolution tests.
func (r *FakeRegistry) PublishVersions(t testing.TB, name string, versions ...string) {
	t.Helper()
	for _, v := range versions {
		r.Publish(t, name, v, map[string]string{
			"package.json": `{"name":"` + name + `","version":"` + v + `"}`,
		})
	}
}

// Corrupt changes the served tarball of name@version without updating its
// checksums.
func (r *FakeRegistry) Corrupt(name, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.packages[name][version]; ok {
		v.tarball = append(bytes.Clone(v.tarball), 0)
	}
}

// FailWith makes every request answer with status. Zero restores normal
// service.
func (r *FakeRegistry) FailWith(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

// MetadataRequests returns the number of package document requests served.
func (r *FakeRegistry) MetadataRequests() int64 { return r.metadataRequests.Load() }

// TarballRequests returns the number of tarball requests served.
func (r *FakeRegistry) TarballRequests() int64 { return r.tarballRequests.Load() }

// TotalRequests returns every request the registry received.
func (r *FakeRegistry) TotalRequests() int64 {
	return r.MetadataRequests() + r.TarballRequests()
}

func (r *FakeRegistry) serveHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	status := r.status
	r.mu.Unlock()

	p := strings.TrimPrefix(req.URL.Path, "/")
	if name, file, ok := strings.Cut(p, "/-/"); ok {
		r.tarballRequests.Add(1)
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		r.serveTarball(w, name, file)
		return
	}

	r.metadataRequests.Add(1)
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	r.serveMetadata(w, p)
}

func (r *FakeRegistry) serveMetadata(w http.ResponseWriter, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, ok := r.packages[name]
	if !ok {
		http.Error(w, `{"error":"Not found"}`, http.StatusNotFound)
		return
	}

	keys := make([]string, 0, len(versions))
	for k := range versions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := map[string]any{"name": name}
	docVersions := make(map[string]any, len(versions))
	for _, k := range keys {
		v := versions[k]
		entry := map[string]any{
			"name":    name,
			"version": k,
			"dist": map[string]string{
				"tarball":   r.server.URL + "/" + name + "/-/" + path.Base(name) + "-" + k + ".tgz",
				"shasum":    v.shasum,
				"integrity": v.integrity,
			},
		}
		if v.main != "" {
			entry["main"] = v.main
		}
		docVersions[k] = entry
	}
	doc["versions"] = docVersions
	if len(keys) > 0 {
		doc["dist-tags"] = map[string]string{"latest": keys[len(keys)-1]}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc) //nolint:errcheck // client disconnects are not test failures
}

func (r *FakeRegistry) serveTarball(w http.ResponseWriter, name, file string) {
	prefix := path.Base(name) + "-"
	if !strings.HasPrefix(file, prefix) || !strings.HasSuffix(file, ".tgz") {
		http.NotFound(w, nil)
		return
	}
	version := strings.TrimSuffix(strings.TrimPrefix(file, prefix), ".tgz")

	r.mu.Lock()
	v, ok := r.packages[name][version]
	r.mu.Unlock()
	if !ok {
		http.NotFound(w, nil)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(v.tarball) //nolint:errcheck // client disconnects are not test failures
}

// BuildTarball packs files the way "npm pack" does: a gzip'd tar whose
// entries live under "package/".
func BuildTarball(files map[string]string) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, name := range names {
		content := files[name]
		mode := int64(0o644)
		if strings.HasPrefix(content, "#!") {
			mode = 0o755
		}
		hdr := &tar.Header{
			Name:     "package/" + name,
			Mode:     mode,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
