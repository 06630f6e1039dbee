// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/SOALIN228/soa-cli/internal/registry"
	"github.com/SOALIN228/soa-cli/pkg/pkgref"
)

// sriAlgorithms lists the Subresource Integrity algorithms soa-cli can
// check, strongest first.
var sriAlgorithms = []string{"sha512", "sha384", "sha256", "sha1"}

// verify checks digests against dist. The strongest algorithm named in
// dist.Integrity wins; the hex Shasum is used only when no supported
// integrity entry is published. A version without any checksum is accepted
// with a warning.
func verify(name pkgref.Name, version string, dist registry.Dist, digests map[string][]byte) error {
	entries := parseIntegrity(dist.Integrity)
	for _, alg := range sriAlgorithms {
		expected, ok := entries[alg]
		if !ok {
			continue
		}
		got := digests[alg]
		for _, want := range expected {
			if bytes.Equal(want, got) {
				return nil
			}
		}
		return &IntegrityError{
			Name:      name,
			Version:   version,
			Algorithm: alg,
			Expected:  base64.StdEncoding.EncodeToString(expected[0]),
			Got:       base64.StdEncoding.EncodeToString(got),
		}
	}

	if dist.Shasum != "" {
		got := hex.EncodeToString(digests["sha1"])
		if !strings.EqualFold(got, dist.Shasum) {
			return &IntegrityError{
				Name:      name,
				Version:   version,
				Algorithm: "shasum",
				Expected:  strings.ToLower(dist.Shasum),
				Got:       got,
			}
		}
		return nil
	}

	slog.Warn("registry publishes no checksum, skipping verification", "name", name, "version", version)
	return nil
}

// parseIntegrity decodes an SRI string ("sha512-<base64> sha1-<base64>")
// into digests per algorithm. Options after "?" and malformed entries are
// ignored.
func parseIntegrity(integrity string) map[string][][]byte {
	out := make(map[string][][]byte)
	for _, field := range strings.Fields(integrity) {
		alg, value, ok := strings.Cut(field, "-")
		if !ok {
			continue
		}
		value, _, _ = strings.Cut(value, "?")
		sum, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			continue
		}
		alg = strings.ToLower(alg)
		out[alg] = append(out[alg], sum)
	}
	return out
}
