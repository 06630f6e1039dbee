// SPDX-License-Identifier: MPL-2.0

package registry

type (
	// Metadata is the subset of a registry package document that soa-cli
	// reads.
	Metadata struct {
		Name     string                 `json:"name"`
		DistTags map[string]string      `json:"dist-tags"`
		Versions map[string]VersionInfo `json:"versions"`
	}

	// VersionInfo describes one published version.
	VersionInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Main    string `json:"main,omitempty"`
		Dist    Dist   `json:"dist"`
	}

	// Dist locates the tarball of a published version and carries its
	// checksums. Integrity is a Subresource Integrity string (usually
	// sha512); Shasum is the legacy hex sha1 digest.
	Dist struct {
		Tarball   string `json:"tarball"`
		Shasum    string `json:"shasum,omitempty"`
		Integrity string `json:"integrity,omitempty"`
	}
)

// Version returns the published info for version, if present.
func (m *Metadata) Version(version string) (VersionInfo, bool) {
	if m == nil {
		return VersionInfo{}, false
	}
	info, ok := m.Versions[version]
	return info, ok
}
