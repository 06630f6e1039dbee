// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	semver "github.com/Masterminds/semver/v3"
)

// ErrInvalidRange is returned for a dependency spec that is neither a
// dist-tag nor a semver range, such as a git URL or a file: path.
var ErrInvalidRange = errors.New("unsupported version range")

// InvalidRangeError carries the rejected spec and the parser error.
type InvalidRangeError struct {
	Spec string
	Err  error
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("%q is not a version range: %v", e.Spec, e.Err)
}

func (e *InvalidRangeError) Unwrap() []error { return []error{ErrInvalidRange, e.Err} }

// ListVersions returns every version published for name, in no particular
// order. It is empty when the registry has no document for name.
func (c *Client) ListVersions(ctx context.Context, name string) ([]string, error) {
	meta, err := c.FetchMetadata(ctx, name)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return []string{}, nil
	}

	versions := make([]string, 0, len(meta.Versions))
	for v := range meta.Versions {
		versions = append(versions, v)
	}
	return versions, nil
}

// ResolveLatest returns the highest published version of name by semantic
// version ordering, or "" when nothing is published.
func (c *Client) ResolveLatest(ctx context.Context, name string) (string, error) {
	versions, err := c.ListVersions(ctx, name)
	if err != nil {
		return "", err
	}
	sorted := SortDescending(versions)
	if len(sorted) == 0 {
		return "", nil
	}
	return sorted[0], nil
}

// ResolveNewerThan returns the highest published version of name that is
// strictly greater than base, or "" when none is.
func (c *Client) ResolveNewerThan(ctx context.Context, base, name string) (string, error) {
	versions, err := c.ListVersions(ctx, name)
	if err != nil {
		return "", err
	}
	newer := NewerThan(base, versions)
	if len(newer) == 0 {
		return "", nil
	}
	return newer[0], nil
}

// SortDescending returns the valid semantic versions among versions,
// highest first. Invalid entries are dropped.
func SortDescending(versions []string) []string {
	parsed := make([]*semver.Version, 0, len(versions))
	for _, v := range versions {
		sv, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		parsed = append(parsed, sv)
	}

	slices.SortStableFunc(parsed, func(a, b *semver.Version) int {
		return b.Compare(a)
	})

	out := make([]string, len(parsed))
	for i, sv := range parsed {
		out[i] = sv.Original()
	}
	return out
}

// NewerThan returns the versions strictly greater than base, highest first.
// Prereleases are skipped unless base is a prerelease of the same
// major.minor.patch. An invalid base yields no versions.
func NewerThan(base string, versions []string) []string {
	baseVer, err := semver.NewVersion(base)
	if err != nil {
		return nil
	}

	var newer []string
	for _, v := range SortDescending(versions) {
		sv, _ := semver.NewVersion(v) //nolint:errcheck // SortDescending only returns valid versions.
		if !sv.GreaterThan(baseVer) {
			break
		}
		if sv.Prerelease() != "" && !samePatch(sv, baseVer) {
			continue
		}
		newer = append(newer, v)
	}
	return newer
}

// samePatch reports whether base is a prerelease sharing v's
// major.minor.patch.
func samePatch(v, base *semver.Version) bool {
	return base.Prerelease() != "" &&
		v.Major() == base.Major() && v.Minor() == base.Minor() && v.Patch() == base.Patch()
}

// MaxSatisfying returns the highest version matching the npm range spec, or
// "" when none does. An empty spec matches any release. Prereleases only
// satisfy ranges that name a prerelease themselves.
func MaxSatisfying(versions []string, spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = "*"
	}
	c, err := semver.NewConstraint(spec)
	if err != nil {
		return "", &InvalidRangeError{Spec: spec, Err: err}
	}

	for _, v := range SortDescending(versions) {
		sv, _ := semver.NewVersion(v) //nolint:errcheck // SortDescending only returns valid versions.
		if c.Check(sv) {
			return v, nil
		}
	}
	return "", nil
}

// ResolveRange resolves a dependency spec of name to a published version.
// A spec naming a dist-tag resolves through the tag, anything else is read
// as a semver range. It returns "" when nothing matches.
func (c *Client) ResolveRange(ctx context.Context, name, spec string) (string, error) {
	meta, err := c.FetchMetadata(ctx, name)
	if err != nil {
		return "", err
	}
	if meta == nil {
		return "", nil
	}
	if v, ok := meta.DistTags[strings.TrimSpace(spec)]; ok {
		if _, published := meta.Versions[v]; published {
			return v, nil
		}
	}

	versions := make([]string, 0, len(meta.Versions))
	for v := range meta.Versions {
		versions = append(versions, v)
	}
	v, err := MaxSatisfying(versions, spec)
	if err != nil {
		return "", fmt.Errorf("resolving %s@%s: %w", name, spec, err)
	}
	return v, nil
}
