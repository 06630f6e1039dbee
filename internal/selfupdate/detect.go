// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	// npmGlobalDir marks a binary shipped inside a globally installed npm package.
	npmGlobalDir = "node_modules"

	// modulePath is the expected Go module path used to confirm go-install origin.
	modulePath = "github.com/SOALIN228/soa-cli"

	// InstallMethodUnknown indicates the install method could not be determined,
	// typically a manual download.
	InstallMethodUnknown InstallMethod = 0

	// InstallMethodNpm indicates a global npm install (npm install -g).
	InstallMethodNpm InstallMethod = 1

	// InstallMethodGoInstall indicates installation via `go install`.
	InstallMethodGoInstall InstallMethod = 2
)

var (
	// installMethodHint is set via -ldflags at build time to override detection.
	//
	//nolint:gochecknoglobals // Build-time ldflags injection requires a package-level variable.
	installMethodHint string

	// readBuildInfo is a test seam for debug.ReadBuildInfo.
	//
	//nolint:gochecknoglobals // Test seam requires a package-level variable.
	readBuildInfo = debug.ReadBuildInfo
)

// InstallMethod identifies how soa-cli was installed on the current system.
type InstallMethod int

// String returns a human-readable name for the install method.
func (m InstallMethod) String() string {
	switch m {
	case InstallMethodNpm:
		return "npm"
	case InstallMethodGoInstall:
		return "goinstall"
	case InstallMethodUnknown:
	}
	return "unknown"
}

// DetectInstallMethod determines how soa-cli was installed. Detection
// priority:
//  1. Build-time ldflags hint
//  2. A node_modules directory in the executable path
//  3. GOPATH/bin confirmed by the module path in the build info
//  4. Unknown
func DetectInstallMethod(execPath string) InstallMethod {
	if installMethodHint != "" {
		return parseMethodHint(installMethodHint)
	}

	for _, part := range strings.Split(filepath.ToSlash(execPath), "/") {
		if part == npmGlobalDir {
			return InstallMethodNpm
		}
	}

	// Both conditions are required: a binary copied into GOPATH/bin by hand
	// is not a go install.
	if isInGOPATHBin(execPath) && hasModulePath() {
		return InstallMethodGoInstall
	}

	return InstallMethodUnknown
}

// parseMethodHint converts a build-time ldflags hint string to an InstallMethod.
func parseMethodHint(hint string) InstallMethod {
	switch strings.ToLower(hint) {
	case "npm":
		return InstallMethodNpm
	case "goinstall":
		return InstallMethodGoInstall
	default:
		return InstallMethodUnknown
	}
}

// isInGOPATHBin checks whether the given path is inside $GOPATH/bin,
// defaulting GOPATH to ~/go like the Go toolchain.
func isInGOPATHBin(execPath string) bool {
	gopath := os.Getenv("GOPATH")
	if gopath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return false
		}
		gopath = filepath.Join(home, "go")
	}

	gopathBin := filepath.Clean(filepath.Join(gopath, "bin"))
	cleanExec := filepath.Clean(execPath)

	// The trailing separator keeps /home/user/gobin from matching /home/user/go/bin.
	return strings.HasPrefix(cleanExec, gopathBin+string(filepath.Separator)) ||
		cleanExec == gopathBin
}

// hasModulePath checks whether the build info names the soa-cli module.
func hasModulePath() bool {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return false
	}
	return strings.Contains(info.Path, modulePath)
}
