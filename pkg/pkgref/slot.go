// SPDX-License-Identifier: MPL-2.0

package pkgref

import (
	"path/filepath"
	"strings"
)

// SlotName returns the store directory entry for one name+version pair:
// "_" + sanitized name + "@" + version + "@" + sort name.
func SlotName(name Name, version string) string {
	return "_" + name.Sanitized() + "@" + version + "@" + name.SortName()
}

// SlotPath returns the cache slot for name at version under storeDir. The
// result depends only on its inputs.
func SlotPath(storeDir string, name Name, version string) string {
	return filepath.Join(storeDir, SlotName(name, version))
}

// PackageDir returns the directory holding the package contents. For an
// unscoped name this is the slot itself; for "@scope/name" it is the "name"
// subdirectory of the slot.
func PackageDir(storeDir string, name Name, version string) string {
	return filepath.Join(storeDir, "_"+name.Sanitized()+"@"+version+"@"+filepath.FromSlash(string(name)))
}

// ToSlash rewrites the platform separator to '/', so entry paths handed to
// child processes use one spelling on every OS.
func ToSlash(p string) string {
	return filepath.ToSlash(p)
}

// ParseSlotName reverses SlotName. ok is false for store entries that are
// not cache slots, such as temporary install directories.
func ParseSlotName(slot string) (name Name, version string, ok bool) {
	rest, found := strings.CutPrefix(slot, "_")
	if !found || rest == "" {
		return "", "", false
	}

	// A scoped sanitized name starts with '@', so the separator search
	// begins after the first byte.
	i := strings.IndexByte(rest[1:], '@')
	if i < 0 {
		return "", "", false
	}
	sanitized := rest[:i+1]
	version, sortName, found := strings.Cut(rest[i+2:], "@")
	if !found || version == "" {
		return "", "", false
	}

	if sortName == sanitized {
		name = Name(sanitized)
	} else {
		base, scoped := strings.CutPrefix(sanitized, sortName+"_")
		if !scoped {
			return "", "", false
		}
		name = Name(sortName + "/" + base)
	}

	if name.Validate() != nil || SlotName(name, version) != slot {
		return "", "", false
	}
	return name, version, true
}
